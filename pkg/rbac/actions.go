package rbac

import (
	"fmt"
	"sort"

	"github.com/platinummonkey/teamgate/pkg/auth"
)

// ActionSpec declares the requirements of one action
type ActionSpec struct {
	Name        Action
	MinimumRole auth.Role
	// RequiresBackend marks actions scoped to a messaging backend named by the caller
	RequiresBackend bool
}

// ActionTable maps action names to their declared requirements.
// It is built once at startup and only read afterwards.
type ActionTable struct {
	specs map[Action]ActionSpec
}

// NewActionTable validates and indexes action specs
func NewActionTable(specs ...ActionSpec) (*ActionTable, error) {
	table := &ActionTable{specs: make(map[Action]ActionSpec, len(specs))}
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("action name is required")
		}
		if !spec.MinimumRole.Valid() {
			return nil, fmt.Errorf("action %s: invalid minimum role %d", spec.Name, spec.MinimumRole)
		}
		if _, exists := table.specs[spec.Name]; exists {
			return nil, fmt.Errorf("action %s declared twice", spec.Name)
		}
		table.specs[spec.Name] = spec
	}
	return table, nil
}

// MustActionTable is like NewActionTable but panics on invalid specs
func MustActionTable(specs ...ActionSpec) *ActionTable {
	table, err := NewActionTable(specs...)
	if err != nil {
		panic(err)
	}
	return table
}

// Lookup returns the declaration of an action
func (t *ActionTable) Lookup(action Action) (ActionSpec, error) {
	spec, ok := t.specs[action]
	if !ok {
		return ActionSpec{}, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	return spec, nil
}

// Actions returns all declared specs sorted by name
func (t *ActionTable) Actions() []ActionSpec {
	specs := make([]ActionSpec, 0, len(t.specs))
	for _, spec := range t.specs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// DefaultActionSpecs are the actions exposed by the current team API.
// Changing the organization and reading verification codes are admin only.
func DefaultActionSpecs() []ActionSpec {
	return []ActionSpec{
		{Name: ActionOrganizationRead, MinimumRole: auth.RoleViewer},
		{Name: ActionOrganizationUpdate, MinimumRole: auth.RoleAdmin},
		{Name: ActionOrganizationTelegramVerificationCode, MinimumRole: auth.RoleAdmin},
		{Name: ActionOrganizationChannelVerificationCode, MinimumRole: auth.RoleAdmin, RequiresBackend: true},
	}
}

// DefaultActions returns the table built from DefaultActionSpecs
func DefaultActions() *ActionTable {
	return MustActionTable(DefaultActionSpecs()...)
}
