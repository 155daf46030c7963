package rbac

import (
	"sort"
	"sync"

	"github.com/casbin/casbin/v2"
	"go.uber.org/zap"
)

//go:generate mockgen -source=rbac_service.go -destination=mock/rbac_service_mock.go -package=mock
type Service interface {
	Enforce(role, resource, action string) (bool, error)
	PermissionsFor(role string) ([]Permission, error)
}

type service struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewService loads policy into enforcer and returns a read-mostly service.
func NewService(enforcer *casbin.Enforcer, policy Policy, logger ...*zap.Logger) (Service, error) {
	l := zap.L().Named("rbac.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("rbac.service")
	}

	s := &service{enforcer: enforcer, logger: l}
	if err := s.load(policy); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *service) load(policy Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enforcer.ClearPolicy()

	rules := 0
	for _, role := range policy.Roles {
		for _, parent := range role.Inherits {
			if _, err := s.enforcer.AddGroupingPolicy(role.Name, parent); err != nil {
				return err
			}
		}
		for _, perm := range role.Permissions {
			for _, action := range perm.Actions {
				if _, err := s.enforcer.AddPolicy(role.Name, perm.Resource, action); err != nil {
					return err
				}
				rules++
			}
		}
	}

	s.logger.Info("rbac policy loaded", zap.Int("roles", len(policy.Roles)), zap.Int("rules", rules))
	return nil
}

func (s *service) Enforce(role, resource, action string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed, err := s.enforcer.Enforce(role, resource, action)
	if err != nil {
		return false, err
	}
	if !allowed {
		s.logger.Debug("rbac denied",
			zap.String("role", role),
			zap.String("resource", resource),
			zap.String("action", action),
		)
	}
	return allowed, nil
}

// PermissionsFor flattens the direct and inherited permissions of role,
// grouped by resource.
func (s *service) PermissionsFor(role string) ([]Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules, err := s.enforcer.GetImplicitPermissionsForUser(role)
	if err != nil {
		return nil, err
	}

	byResource := map[string]map[string]bool{}
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		if byResource[rule[1]] == nil {
			byResource[rule[1]] = map[string]bool{}
		}
		byResource[rule[1]][rule[2]] = true
	}

	perms := make([]Permission, 0, len(byResource))
	for resource, actions := range byResource {
		p := Permission{Resource: resource}
		for a := range actions {
			p.Actions = append(p.Actions, a)
		}
		sort.Strings(p.Actions)
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Resource < perms[j].Resource })
	return perms, nil
}
