package tools

// Tool names.
const (
	NameDiscover      = "discover_mokus"
	NameAttach        = "attach_moku"
	NameRelease       = "release_moku"
	NamePushConfig    = "push_config"
	NameGetConfig     = "get_config"
	NameSetRouting    = "set_routing"
	NameGetDeviceInfo = "get_device_info"
	NameListSlots     = "list_slots"
)

// Parameter types, as JSON Schema names them.
const (
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeNumber  = "number"
	TypeObject  = "object"
	TypeArray   = "array"
)

// Param describes one tool argument.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// Definition describes a tool.
type Definition struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`

	// NeedsDevice tools fail with session.ErrNotConnected when no device
	// is attached, before their arguments are examined.
	NeedsDevice bool `json:"needs_device"`
}

var catalog = []Definition{
	{
		Name:        NameDiscover,
		Description: "Discover Moku devices on the local network via mDNS and record them in the device cache.",
		Params: []Param{
			{Name: "timeout", Type: TypeNumber, Description: "Seconds to listen for announcements (0.5 to 30).", Default: 2},
		},
	},
	{
		Name:        NameAttach,
		Description: "Take ownership of a Moku by IP address, name, or serial number.",
		Params: []Param{
			{Name: "device_id", Type: TypeString, Description: "IP address, device name, or serial number.", Required: true},
			{Name: "force", Type: TypeBoolean, Description: "Disconnect any other client that owns the device.", Default: false},
		},
	},
	{
		Name:        NameRelease,
		Description: "Release ownership of the attached Moku so other clients can connect.",
	},
	{
		Name:        NamePushConfig,
		Description: "Deploy a configuration (platform, instrument slots, routing) to the attached Moku.",
		Params: []Param{
			{Name: "config_dict", Type: TypeObject, Description: "Configuration with platform, slots, and routing.", Required: true},
		},
		NeedsDevice: true,
	},
	{
		Name:        NameGetConfig,
		Description: "Return the attached Moku's configuration. Routing is only known after a push_config or set_routing from this server.",
		NeedsDevice: true,
	},
	{
		Name:        NameSetRouting,
		Description: "Replace the signal routing of the attached Moku.",
		Params: []Param{
			{Name: "connections", Type: TypeArray, Description: "Routing edges, each {\"source\": ..., \"destination\": ...}.", Required: true},
		},
		NeedsDevice: true,
	},
	{
		Name:        NameGetDeviceInfo,
		Description: "Return the attached Moku's address, name, serial number, and platform.",
		NeedsDevice: true,
	},
	{
		Name:        NameListSlots,
		Description: "List the instrument loaded in each slot of the attached Moku.",
		NeedsDevice: true,
	},
}

// Catalog returns every tool definition in registration order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Names returns every tool name in registration order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for _, d := range catalog {
		names = append(names, d.Name)
	}
	return names
}

// Lookup returns the definition for name.
func Lookup(name string) (Definition, bool) {
	for _, d := range catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
