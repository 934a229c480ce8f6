package models

// Host is one reachable address of a running server.
type Host struct {
	Name      string
	Network   string
	IP        string
	IPVersion int
	Username  string
	Keypair   string
}
