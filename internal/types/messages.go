package types

import "github.com/rincatpp/deepdrone/internal/mission"

const (
	MessageTypeChatRequest       = "chat-request"
	MessageTypeChatResponse      = "chat-response"
	MessageTypePlanRequest       = "plan-request"
	MessageTypePlanGenerated     = "plan-generated"
	MessageTypePlanRejected      = "plan-rejected"
	MessageTypeExecuteMission    = "execute-mission"
	MessageTypeMissionProgress   = "mission-progress"
	MessageTypeConnectVehicle    = "connect-vehicle"
	MessageTypeDisconnectVehicle = "disconnect-vehicle"
	MessageTypeVehicleStatus     = "vehicle-status"
	MessageTypeLand              = "land"
	MessageTypeReturnToLaunch    = "return-to-launch"
	MessageTypeGoto              = "goto"
	MessageTypeTelemetryUpdate   = "telemetry"
)

const (
	MissionStatusStarted   = "started"
	MissionStatusCompleted = "completed"
	MissionStatusFailed    = "failed"
	MissionStatusRejected  = "rejected"
)

type ChatRequest struct {
	Text string `json:"text"`
}

type ChatResponse struct {
	Text    string               `json:"text"`
	Plan    *mission.MissionPlan `json:"plan,omitempty"`
	Execute bool                 `json:"execute"`
}

type PlanRequest struct {
	MissionType     string            `json:"mission_type"`
	DurationMinutes float64           `json:"duration_minutes"`
	Reference       *mission.Location `json:"reference,omitempty"`
	Destination     *mission.Location `json:"destination,omitempty"`
}

type PlanGenerated struct {
	Plan mission.MissionPlan `json:"plan"`
}

type PlanRejected struct {
	Reason string `json:"reason"`
}

type ExecuteMission struct {
	Plan mission.MissionPlan `json:"plan"`
}

type MissionProgress struct {
	MissionType mission.MissionType `json:"mission_type"`
	Status      string              `json:"status"`
	Error       string              `json:"error,omitempty"`
}

type ConnectVehicle struct {
	Address string `json:"address"`
}

type DisconnectVehicle struct{}

type VehicleStatus struct {
	Connected bool              `json:"connected"`
	Address   string            `json:"address,omitempty"`
	Home      *mission.Location `json:"home,omitempty"`
	Error     string            `json:"error,omitempty"`
}

type Land struct{}

type ReturnToLaunch struct{}

// Goto flies the vehicle to an absolute position. Alt is metres above home.
type Goto struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

type TelemetryUpdate struct {
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	Alt              float64 `json:"alt"`
	BatteryVoltageV  float64 `json:"battery_voltage_v"`
	BatteryRemaining float64 `json:"battery_remaining"`
	GroundSpeed      float64 `json:"ground_speed"`
	Armed            bool    `json:"armed"`
	Mode             string  `json:"mode"`
}
