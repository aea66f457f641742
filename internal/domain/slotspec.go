package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RoleSlot is one role in a slot schema with its maximum occupant count.
type RoleSlot struct {
	Role     string `json:"role"`
	Capacity int    `json:"capacity"`
}

// SchemaParseError reports a malformed slot specification. Token is the
// segment that failed, so callers can echo it back to the user.
type SchemaParseError struct {
	Token  string
	Reason string
}

func (e *SchemaParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("invalid slot spec: %s", e.Reason)
	}
	return fmt.Sprintf("invalid slot spec at %q: %s", e.Token, e.Reason)
}

// ParseSlotSpec parses a specification of the form "role1:cap1,role2:cap2"
// into an ordered list of role slots. The parse is all-or-nothing: any bad
// segment fails the whole spec.
func ParseSlotSpec(raw string) ([]RoleSlot, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &SchemaParseError{Reason: "empty specification"}
	}

	segments := strings.Split(raw, ",")
	slots := make([]RoleSlot, 0, len(segments))
	seen := make(map[string]struct{}, len(segments))

	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			return nil, &SchemaParseError{Token: seg, Reason: "empty segment"}
		}
		role, capStr, found := strings.Cut(seg, ":")
		if !found {
			return nil, &SchemaParseError{Token: seg, Reason: "missing ':' separator"}
		}
		role = strings.TrimSpace(role)
		if role == "" {
			return nil, &SchemaParseError{Token: seg, Reason: "empty role name"}
		}
		if _, dup := seen[role]; dup {
			return nil, &SchemaParseError{Token: seg, Reason: "duplicate role name"}
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(capStr))
		if err != nil {
			return nil, &SchemaParseError{Token: seg, Reason: "capacity is not an integer"}
		}
		if capacity < 1 {
			return nil, &SchemaParseError{Token: seg, Reason: "capacity must be at least 1"}
		}
		seen[role] = struct{}{}
		slots = append(slots, RoleSlot{Role: role, Capacity: capacity})
	}

	if len(slots) == 0 {
		return nil, &SchemaParseError{Reason: "no roles defined"}
	}
	return slots, nil
}
