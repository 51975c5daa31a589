package enum

type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateIdling       ConnectionState = "idling"
	StateReconnecting ConnectionState = "reconnecting"
	StateTerminated   ConnectionState = "terminated"
)

func (t ConnectionState) String() string {
	return string(t)
}
