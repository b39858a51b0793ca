package domain

import (
	"time"

	"github.com/berfenger/kwb2mqtt/pkg/kwb"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_KWB          = "kwb"
	ACTOR_ID_HEATER       = "heater"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type ScrapeRequest struct {
	ActorRequestMixIn
}

type ScrapeResponse struct {
	ActorResponseMixIn
	Snapshot  kwb.Snapshot
	Timestamp time.Time
}

type GetApplianceInfoRequest struct {
	ActorRequestMixIn
}

type GetApplianceInfoResponse struct {
	ActorResponseMixIn
	Groups []kwb.SignalGroup
	State  string
}

type GetSnapshotRequest struct {
	ActorRequestMixIn
}

type GetSnapshotResponse struct {
	ActorResponseMixIn
	Snapshot            kwb.Snapshot
	Totals              HeaterTotals
	Available           bool
	Recovered           bool
	LastScrape          time.Time
	ConsecutiveFailures uint
}

type GetCheckpointRequest struct {
	ActorRequestMixIn
}

type GetCheckpointResponse struct {
	ActorResponseMixIn
	UniqueId  string
	Seed      Seed
	Recovered bool
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
