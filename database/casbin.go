package database

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const restfulRBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// Roles that may publish topic events over REST out of the box.
var topicPublishers = []string{"admin", "service"}

func Casbin(db *gorm.DB, modelPath string) (*casbin.Enforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize casbin adapter: %w", err)
	}

	var e *casbin.Enforcer
	if modelPath != "" {
		e, err = casbin.NewEnforcer(modelPath, adapter)
	} else {
		var m casbinmodel.Model
		if m, err = RBACModel(); err == nil {
			e, err = casbin.NewEnforcer(m, adapter)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load casbin policy: %w", err)
	}
	if err := SeedPolicies(e); err != nil {
		return nil, err
	}
	return e, nil
}

func RBACModel() (casbinmodel.Model, error) {
	return casbinmodel.NewModelFromString(restfulRBACModel)
}

// SeedPolicies grants the default publisher roles access to topic events.
func SeedPolicies(e *casbin.Enforcer) error {
	for _, role := range topicPublishers {
		if hasPolicy, _ := e.HasPolicy(role, "/v1/topics/*", "POST"); hasPolicy {
			continue
		}
		if _, err := e.AddPolicy(role, "/v1/topics/*", "POST"); err != nil {
			return fmt.Errorf("failed to add %s policy: %w", role, err)
		}
	}
	return nil
}
