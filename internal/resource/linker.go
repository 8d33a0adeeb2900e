package resource

import "fmt"

// LinkRelations resolves relation targets and fills in defaulted keys.
// Called once after all declarations are registered, before any request.
func LinkRelations() error {
	for name, res := range Registry {
		for relName, rel := range res.Relations {
			target, ok := Registry[rel.Res]
			if !ok {
				return fmt.Errorf("invalid relation: resource '%s' not found in '%s.%s'", rel.Res, name, relName)
			}
			rel.setTarget(target)

			switch rel.Type {
			case "belongs_to":
				// FK lives in the current resource and points at the target
				if rel.FK == "" {
					rel.FK = relName + "_id"
				}
			case "has_one", "has_many":
				// FK lives in the target and points back at the current resource
				if rel.FK == "" {
					rel.FK = singular(toSnakeCase(name)) + "_id"
				}
			default:
				return fmt.Errorf("relation '%s.%s' must have valid Type (has_many, has_one, belongs_to), got '%s'", name, relName, rel.Type)
			}

			if rel.PK == "" {
				rel.PK = "id"
			}

			// the ownership key must be a declared column of whichever side holds it
			holder := res
			if rel.Type != "belongs_to" {
				holder = target
			}
			if _, ok := holder.Column(rel.FK); !ok {
				return fmt.Errorf("relation '%s.%s': fk '%s' is not a declared field of '%s'", name, relName, rel.FK, holder.Name)
			}
		}
	}
	return nil
}
