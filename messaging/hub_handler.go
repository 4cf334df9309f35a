package messaging

import (
	"log"

	"vachub/dispatch"
	"vachub/protocol"
	"vachub/store"
)

// HubHandler handles inbound command messages on the command topic and
// delegates them to the dispatcher. Acks and errors go through the outbox
// so a broker outage cannot lose replies.
type HubHandler struct {
	protocol.NoOpHandler

	db         *store.DB
	dispatcher *dispatch.Dispatcher
	hubID      string
	stateTopic string
}

// NewHubHandler creates a handler for inbound controller commands.
func NewHubHandler(db *store.DB, dispatcher *dispatch.Dispatcher, hubID, stateTopic string) *HubHandler {
	return &HubHandler{
		db:         db,
		dispatcher: dispatcher,
		hubID:      hubID,
		stateTopic: stateTopic,
	}
}

func (h *HubHandler) HandleCleanSegments(env *protocol.Envelope, p *protocol.CleanSegments) {
	log.Printf("hub_handler: clean_segments for %s: %v", p.RobotID, p.SegmentIDs)
	job, err := h.dispatcher.CleanSegments(p.RobotID, p.SegmentIDs, p.Iterations, dispatch.SourceRemote)
	if err != nil {
		h.replyError(env, p.CommandUUID, p.RobotID, err)
		return
	}
	h.replyAck(env, p.CommandUUID, job)
}

func (h *HubHandler) HandleCleanZones(env *protocol.Envelope, p *protocol.CleanZones) {
	log.Printf("hub_handler: clean_zones for %s: %d zones", p.RobotID, len(p.Zones))
	zones := make([]dispatch.PixelZone, len(p.Zones))
	for i, z := range p.Zones {
		zones[i] = dispatch.PixelZone{X1: z.X1, Y1: z.Y1, X2: z.X2, Y2: z.Y2}
	}
	job, err := h.dispatcher.CleanZones(p.RobotID, zones, p.Iterations, dispatch.SourceRemote)
	if err != nil {
		h.replyError(env, p.CommandUUID, p.RobotID, err)
		return
	}
	h.replyAck(env, p.CommandUUID, job)
}

func (h *HubHandler) HandleGoTo(env *protocol.Envelope, p *protocol.GoTo) {
	log.Printf("hub_handler: goto for %s: (%d,%d)", p.RobotID, p.X, p.Y)
	job, err := h.dispatcher.GoTo(p.RobotID, p.X, p.Y, dispatch.SourceRemote)
	if err != nil {
		h.replyError(env, p.CommandUUID, p.RobotID, err)
		return
	}
	h.replyAck(env, p.CommandUUID, job)
}

func (h *HubHandler) HandleBasicControl(env *protocol.Envelope, p *protocol.BasicControl) {
	log.Printf("hub_handler: basic %s for %s", p.Action, p.RobotID)
	job, err := h.dispatcher.Basic(p.RobotID, p.Action, dispatch.SourceRemote)
	if err != nil {
		h.replyError(env, p.CommandUUID, p.RobotID, err)
		return
	}
	h.replyAck(env, p.CommandUUID, job)
}

func (h *HubHandler) HandleFanSpeed(env *protocol.Envelope, p *protocol.FanSpeed) {
	log.Printf("hub_handler: fan_speed %s for %s", p.Preset, p.RobotID)
	job, err := h.dispatcher.SetFanSpeed(p.RobotID, p.Preset, dispatch.SourceRemote)
	if err != nil {
		h.replyError(env, p.CommandUUID, p.RobotID, err)
		return
	}
	h.replyAck(env, p.CommandUUID, job)
}

func (h *HubHandler) HandleLocate(env *protocol.Envelope, p *protocol.Locate) {
	log.Printf("hub_handler: locate for %s", p.RobotID)
	job, err := h.dispatcher.Locate(p.RobotID, dispatch.SourceRemote)
	if err != nil {
		h.replyError(env, p.CommandUUID, p.RobotID, err)
		return
	}
	h.replyAck(env, p.CommandUUID, job)
}

func (h *HubHandler) hubAddr() protocol.Address {
	return protocol.Address{Role: protocol.RoleHub, Hub: h.hubID}
}

func (h *HubHandler) replyAck(env *protocol.Envelope, commandUUID string, job *store.Job) {
	reply, err := protocol.NewReply(protocol.TypeCommandAck, h.hubAddr(), env.Src, env.ID,
		&protocol.CommandAck{
			CommandUUID: commandUUID,
			JobID:       job.ID,
			JobUUID:     job.JobUUID,
		})
	if err != nil {
		log.Printf("hub_handler: build ack: %v", err)
		return
	}
	h.enqueue(reply, protocol.TypeCommandAck, job.RobotID)
}

func (h *HubHandler) replyError(env *protocol.Envelope, commandUUID, robotID string, cmdErr error) {
	reply, err := protocol.NewReply(protocol.TypeCommandError, h.hubAddr(), env.Src, env.ID,
		&protocol.CommandError{
			CommandUUID: commandUUID,
			ErrorCode:   dispatch.ErrorCode(cmdErr),
			Detail:      cmdErr.Error(),
		})
	if err != nil {
		log.Printf("hub_handler: build error reply: %v", err)
		return
	}
	h.enqueue(reply, protocol.TypeCommandError, robotID)
}

func (h *HubHandler) enqueue(env *protocol.Envelope, msgType, robotID string) {
	data, err := env.Encode()
	if err != nil {
		log.Printf("hub_handler: encode %s: %v", msgType, err)
		return
	}
	if err := h.db.EnqueueOutbox(h.stateTopic, data, msgType, robotID); err != nil {
		log.Printf("hub_handler: enqueue %s: %v", msgType, err)
	}
}

// HubFilter accepts messages addressed to this hub or broadcast to all
// hubs, and drops everything else before the payload decode.
func HubFilter(hubID string) protocol.FilterFunc {
	return func(hdr *protocol.RawHeader) bool {
		if hdr.Dst.Role != protocol.RoleHub {
			return false
		}
		return hdr.Dst.Hub == "" || hdr.Dst.Hub == "*" || hdr.Dst.Hub == hubID
	}
}
