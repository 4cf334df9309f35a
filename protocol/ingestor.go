package protocol

import (
	"encoding/json"
	"log"
)

// FilterFunc returns true if the message should be processed.
type FilterFunc func(hdr *RawHeader) bool

// MessageHandler defines callbacks for all protocol message types.
// Embed NoOpHandler and override only the methods you need.
type MessageHandler interface {
	// Controller -> Hub
	HandleCleanSegments(env *Envelope, p *CleanSegments)
	HandleCleanZones(env *Envelope, p *CleanZones)
	HandleGoTo(env *Envelope, p *GoTo)
	HandleBasicControl(env *Envelope, p *BasicControl)
	HandleFanSpeed(env *Envelope, p *FanSpeed)
	HandleLocate(env *Envelope, p *Locate)

	// Hub -> Controller
	HandleHubRegister(env *Envelope, p *HubRegister)
	HandleHubHeartbeat(env *Envelope, p *HubHeartbeat)
	HandleStateReport(env *Envelope, p *StateReport)
	HandleMapReport(env *Envelope, p *MapReport)
	HandleRobotEvent(env *Envelope, p *RobotEvent)
	HandleCommandAck(env *Envelope, p *CommandAck)
	HandleCommandError(env *Envelope, p *CommandError)
}

// Ingestor performs two-phase decode and dispatches to a MessageHandler.
type Ingestor struct {
	handler MessageHandler
	filter  FilterFunc
}

// NewIngestor creates an ingestor with the given handler and filter.
func NewIngestor(handler MessageHandler, filter FilterFunc) *Ingestor {
	return &Ingestor{
		handler: handler,
		filter:  filter,
	}
}

// HandleRaw is the entry point for raw message bytes from the messaging
// layer.
func (ing *Ingestor) HandleRaw(data []byte) {
	// Phase 1: decode routing header only
	var hdr RawHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		log.Printf("protocol: header decode error: %v", err)
		return
	}

	if IsExpiredHeader(&hdr) {
		log.Printf("protocol: dropping expired message %s (type=%s)", hdr.ID, hdr.Type)
		return
	}

	if ing.filter != nil && !ing.filter(&hdr) {
		return
	}

	// Phase 2: full envelope decode
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("protocol: envelope decode error: %v", err)
		return
	}

	switch env.Type {
	case TypeCleanSegments:
		decodeAndCall(ing.handler.HandleCleanSegments, &env)
	case TypeCleanZones:
		decodeAndCall(ing.handler.HandleCleanZones, &env)
	case TypeGoTo:
		decodeAndCall(ing.handler.HandleGoTo, &env)
	case TypeBasicControl:
		decodeAndCall(ing.handler.HandleBasicControl, &env)
	case TypeFanSpeed:
		decodeAndCall(ing.handler.HandleFanSpeed, &env)
	case TypeLocate:
		decodeAndCall(ing.handler.HandleLocate, &env)
	case TypeHubRegister:
		decodeAndCall(ing.handler.HandleHubRegister, &env)
	case TypeHubHeartbeat:
		decodeAndCall(ing.handler.HandleHubHeartbeat, &env)
	case TypeStateReport:
		decodeAndCall(ing.handler.HandleStateReport, &env)
	case TypeMapReport:
		decodeAndCall(ing.handler.HandleMapReport, &env)
	case TypeRobotEvent:
		decodeAndCall(ing.handler.HandleRobotEvent, &env)
	case TypeCommandAck:
		decodeAndCall(ing.handler.HandleCommandAck, &env)
	case TypeCommandError:
		decodeAndCall(ing.handler.HandleCommandError, &env)
	default:
		log.Printf("protocol: unknown message type: %s", env.Type)
	}
}

// decodeAndCall unmarshals the payload and calls the handler method.
func decodeAndCall[T any](fn func(*Envelope, *T), env *Envelope) {
	var p T
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		log.Printf("protocol: payload decode error for %s: %v", env.Type, err)
		return
	}
	fn(env, &p)
}
