package protocol

// NoOpHandler implements MessageHandler with no-op methods.
// Embed this and override only the methods you need.
type NoOpHandler struct{}

func (NoOpHandler) HandleCleanSegments(*Envelope, *CleanSegments) {}
func (NoOpHandler) HandleCleanZones(*Envelope, *CleanZones)       {}
func (NoOpHandler) HandleGoTo(*Envelope, *GoTo)                   {}
func (NoOpHandler) HandleBasicControl(*Envelope, *BasicControl)   {}
func (NoOpHandler) HandleFanSpeed(*Envelope, *FanSpeed)           {}
func (NoOpHandler) HandleLocate(*Envelope, *Locate)               {}
func (NoOpHandler) HandleHubRegister(*Envelope, *HubRegister)     {}
func (NoOpHandler) HandleHubHeartbeat(*Envelope, *HubHeartbeat)   {}
func (NoOpHandler) HandleStateReport(*Envelope, *StateReport)     {}
func (NoOpHandler) HandleMapReport(*Envelope, *MapReport)         {}
func (NoOpHandler) HandleRobotEvent(*Envelope, *RobotEvent)       {}
func (NoOpHandler) HandleCommandAck(*Envelope, *CommandAck)       {}
func (NoOpHandler) HandleCommandError(*Envelope, *CommandError)   {}

// Compile-time check that NoOpHandler implements MessageHandler.
var _ MessageHandler = NoOpHandler{}
