package hostapi

/*
 *   Narrow view of the remote-host platform protocol: the status
 *   codes a command handler may return, the setup-flow message and
 *   action variants, and the grid-based UI primitives.  Only what the
 *   driver actually exchanges with the host is modelled here.
 */

// StatusCode is the result of handling one entity command
type StatusCode int

const (
	StatusOK                 StatusCode = 200
	StatusBadRequest         StatusCode = 400
	StatusNotFound           StatusCode = 404
	StatusServerError        StatusCode = 500
	StatusNotImplemented     StatusCode = 501
	StatusServiceUnavailable StatusCode = 503
)

// SetupErrorKind distinguishes why a setup flow failed
type SetupErrorKind string

const (
	ErrNone              SetupErrorKind = "NONE"
	ErrAuthorization     SetupErrorKind = "AUTHORIZATION_ERROR"
	ErrConnectionRefused SetupErrorKind = "CONNECTION_REFUSED"
	ErrRateLimited       SetupErrorKind = "RATE_LIMITED"
	ErrOther             SetupErrorKind = "OTHER"
)

/*
 * Setup flow messages (host -> driver)
 */

// SetupRequest is one message of the host's setup flow
type SetupRequest interface {
	isSetupRequest()
}

// DriverSetupRequest starts a setup flow, optionally carrying
// initial form values
type DriverSetupRequest struct {
	Reconfigure bool              `json:"reconfigure"`
	SetupData   map[string]string `json:"setup_data,omitempty"`
}

// UserDataResponse carries values the user entered in a setup form
type UserDataResponse struct {
	InputValues map[string]string `json:"input_values"`
}

// UserConfirmationResponse carries the user's answer to a
// confirmation screen
type UserConfirmationResponse struct {
	Confirm bool `json:"confirm"`
}

// AbortDriverSetup cancels a running setup flow
type AbortDriverSetup struct {
	Error SetupErrorKind `json:"error"`
}

func (DriverSetupRequest) isSetupRequest()       {}
func (UserDataResponse) isSetupRequest()         {}
func (UserConfirmationResponse) isSetupRequest() {}
func (AbortDriverSetup) isSetupRequest()         {}

/*
 * Setup flow actions (driver -> host)
 */

// SetupAction is the driver's response to a setup message
type SetupAction interface {
	isSetupAction()
}

// SetupInProgress tells the host to keep the flow open
type SetupInProgress struct{}

// SetupInput is one field of a requested setup form
type SetupInput struct {
	ID    string            `json:"id"`
	Label map[string]string `json:"label"`
}

// RequestUserInput asks the host to present a form to the user
type RequestUserInput struct {
	Title  map[string]string `json:"title"`
	Inputs []SetupInput      `json:"settings"`
}

// SetupComplete ends the flow successfully
type SetupComplete struct{}

// SetupError ends the flow with a classified failure
type SetupError struct {
	Kind SetupErrorKind `json:"error"`
}

func (SetupInProgress) isSetupAction()  {}
func (RequestUserInput) isSetupAction() {}
func (SetupComplete) isSetupAction()    {}
func (SetupError) isSetupAction()       {}

/*
 * Grid UI primitives
 */

// Size is a width x height extent in grid cells
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// UIItem is one cell group on a page: a text label, optionally bound
// to a simple command
type UIItem struct {
	Text    string `json:"text"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Size    Size   `json:"size"`
	Command string `json:"command,omitempty"`
}

// TextItem places a label with no command binding
func TextItem(text string, x, y int, size Size) UIItem {
	return UIItem{Text: text, X: x, Y: y, Size: size}
}

// CommandItem places a label bound to a simple command
func CommandItem(text string, x, y int, size Size, command string) UIItem {
	return UIItem{Text: text, X: x, Y: y, Size: size, Command: command}
}

// UIPage is a fixed-size grid of items
type UIPage struct {
	ID    string   `json:"page_id"`
	Name  string   `json:"name"`
	Grid  Size     `json:"grid"`
	Items []UIItem `json:"items"`
}

func NewUIPage(id, name string, grid Size) *UIPage {
	return &UIPage{ID: id, Name: name, Grid: grid}
}

func (p *UIPage) Add(item UIItem) {
	p.Items = append(p.Items, item)
}

/*
 * Remote entity
 */

// Feature of a remote entity
type Feature string

const (
	FeatureOnOff   Feature = "on_off"
	FeatureSendCmd Feature = "send_cmd"
)

// EntityState of a remote entity
type EntityState string

const (
	StateOn  EntityState = "ON"
	StateOff EntityState = "OFF"
)

// Entity command identifiers delivered to the handler
const (
	CmdOn      = "on"
	CmdOff     = "off"
	CmdSendCmd = "send_cmd"
)

// Button is a physical key of the remote
type Button string

const (
	ButtonPower      Button = "POWER"
	ButtonVolumeUp   Button = "VOLUME_UP"
	ButtonVolumeDown Button = "VOLUME_DOWN"
)

// ButtonMapping binds a physical key to a simple command
type ButtonMapping struct {
	Button     Button `json:"button"`
	ShortPress string `json:"short_press,omitempty"`
}

// CmdHandler executes one command against an entity
type CmdHandler func(entity *RemoteEntity, cmdID string, params map[string]interface{}) StatusCode

// RemoteEntity is the driver's remote as exposed to the host
type RemoteEntity struct {
	ID             string                 `json:"entity_id"`
	Name           map[string]string      `json:"name"`
	Features       []Feature              `json:"features"`
	Attributes     map[string]interface{} `json:"attributes"`
	SimpleCommands []string               `json:"simple_commands"`
	ButtonMapping  []ButtonMapping        `json:"button_mapping,omitempty"`
	UIPages        []*UIPage              `json:"ui_pages"`

	Handler CmdHandler `json:"-"`
}
