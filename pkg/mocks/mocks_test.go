package mocks

import (
	"github.com/residentdesk/facilityflow/pkg/eventbus"
	"github.com/residentdesk/facilityflow/pkg/persistence"
)

var (
	_ persistence.Persistence = (*MockPersistence)(nil)
	_ eventbus.EventBus       = (*MockEventBus)(nil)
)
