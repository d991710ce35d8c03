// Package domain holds the core types shared across services: subscribers,
// their service subscriptions and Quran reading progress.
package domain

import (
	"fmt"
	"time"
)

// Service identifies one of the subscription services a user can toggle.
type Service string

const (
	ServiceQuran         Service = "quran"
	ServiceProphetPrayer Service = "prophet_prayer"
	ServiceDhikr         Service = "dhikr"
	ServiceNightPrayer   Service = "night_prayer"
)

// Services lists all toggleable services in display order.
var Services = []Service{ServiceQuran, ServiceProphetPrayer, ServiceDhikr, ServiceNightPrayer}

func (s Service) Valid() bool {
	switch s {
	case ServiceQuran, ServiceProphetPrayer, ServiceDhikr, ServiceNightPrayer:
		return true
	}
	return false
}

// Subscriptions is the per-user on/off state of each service.
type Subscriptions struct {
	Quran         bool `json:"quran"`
	ProphetPrayer bool `json:"prophet_prayer"`
	Dhikr         bool `json:"dhikr"`
	NightPrayer   bool `json:"night_prayer"`
}

func (s Subscriptions) Enabled(svc Service) bool {
	switch svc {
	case ServiceQuran:
		return s.Quran
	case ServiceProphetPrayer:
		return s.ProphetPrayer
	case ServiceDhikr:
		return s.Dhikr
	case ServiceNightPrayer:
		return s.NightPrayer
	}
	return false
}

// Toggle flips the given service and returns the new state.
func (s *Subscriptions) Toggle(svc Service) (bool, error) {
	switch svc {
	case ServiceQuran:
		s.Quran = !s.Quran
		return s.Quran, nil
	case ServiceProphetPrayer:
		s.ProphetPrayer = !s.ProphetPrayer
		return s.ProphetPrayer, nil
	case ServiceDhikr:
		s.Dhikr = !s.Dhikr
		return s.Dhikr, nil
	case ServiceNightPrayer:
		s.NightPrayer = !s.NightPrayer
		return s.NightPrayer, nil
	}
	return false, fmt.Errorf("unknown service %q", svc)
}

// Any reports whether at least one service is enabled.
func (s Subscriptions) Any() bool {
	return s.Quran || s.ProphetPrayer || s.Dhikr || s.NightPrayer
}

// User is a registered subscriber.
type User struct {
	ID       int64         `json:"id"`
	Username string        `json:"username,omitempty"`
	JoinedAt time.Time     `json:"joined_at"`
	Subs     Subscriptions `json:"subs"`
}

// NewUser returns a fresh registration with no subscriptions.
func NewUser(id int64, username string) User {
	return User{ID: id, Username: username, JoinedAt: time.Now().UTC()}
}
