package action

import (
	"strings"
)

// Kind is a lifecycle operation a machine may expose.
type Kind int

// Recognized kinds. Any other action advertised by the server is ignored.
const (
	PowerOn Kind = iota + 1
	PowerOff
	Reboot
	Suspend
	Expire
	Destroy
	ChangeLease
	CreateSnapshot
	RevertSnapshot
	DeleteSnapshot
)

const refreshLater = " This action might take a while, please refresh the page a couple minutes later to see the updated "

type kindInfo struct {
	name    string
	hasForm bool
	message string
}

var kindTable = map[Kind]kindInfo{
	PowerOn:  {name: "PowerOn"},
	PowerOff: {name: "PowerOff", message: "Power Off request has been submitted!" + refreshLater + "machine status"},
	Reboot:   {name: "Reboot"},
	Suspend:  {name: "Suspend", message: "Suspend request has been submitted!"},
	Expire:   {name: "Expire", message: "Expire request has been submitted!"},
	Destroy:  {name: "Destroy"},
	ChangeLease: {
		name:    "ChangeLease",
		hasForm: true,
		message: "Change lease request has been submitted!" + refreshLater + "result",
	},
	CreateSnapshot: {name: "CreateSnapshot", hasForm: true},
	RevertSnapshot: {name: "RevertSnapshot", hasForm: true},
	DeleteSnapshot: {
		name:    "DeleteSnapshot",
		hasForm: true,
		message: "Delete snapshot request has been submitted!" + refreshLater + "result",
	},
}

// presentation is the order capabilities are offered in. PowerOn and
// PowerOff share the first slot.
var presentation = []Kind{
	PowerOn, Reboot, Suspend, Expire, Destroy,
	ChangeLease, CreateSnapshot, RevertSnapshot, DeleteSnapshot,
}

// Kinds returns every recognized kind.
func Kinds() []Kind {
	return []Kind{
		PowerOn, PowerOff, Reboot, Suspend, Expire, Destroy,
		ChangeLease, CreateSnapshot, RevertSnapshot, DeleteSnapshot,
	}
}

// ParseKind maps the action name found in a link relation to its kind.
// Matching is exact.
func ParseKind(name string) (Kind, bool) {
	for kind, info := range kindTable {
		if info.name == name {
			return kind, true
		}
	}

	return 0, false
}

// LookupKind maps user input such as "power-off" or "changelease" to a kind.
func LookupKind(input string) (Kind, bool) {
	normalized := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(input))

	for kind, info := range kindTable {
		if strings.ToLower(info.name) == normalized {
			return kind, true
		}
	}

	return 0, false
}

// String returns the server-side action name.
func (k Kind) String() string {
	if info, ok := kindTable[k]; ok {
		return info.name
	}

	return "Unknown"
}

// Key returns the lower-case name used to index capabilities.
func (k Kind) Key() string {
	return strings.ToLower(k.String())
}

// HasForm reports whether the kind is submitted through an editable form.
func (k Kind) HasForm() bool {
	return kindTable[k].hasForm
}

// ConfirmationPrompt is the question asked before the action is sent.
func (k Kind) ConfirmationPrompt() string {
	return "Are you sure you want to send " + k.String() + " action request?"
}

// SuccessMessage is shown once the server accepts the request.
func (k Kind) SuccessMessage() string {
	if message := kindTable[k].message; message != "" {
		return message
	}

	return "Action " + k.String() + " request has been submitted!"
}
