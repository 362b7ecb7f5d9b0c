package qbot

type Scope int

const (
	Other   Scope = 0
	Private Scope = 1
	Group   Scope = 2
)

func (s Scope) String() string {
	switch s {
	case Private:
		return "private"
	case Group:
		return "group"
	default:
		return "other"
	}
}

// Event is one inbound chat message, normalized. Built by ParseEvent and not
// modified afterwards.
type Event struct {
	Scope   Scope
	SelfID  string
	UserID  string
	GroupID string // group scope only
	MsgID   string
	Name    string // card, nickname or user id
	IsAdmin bool
	Text    string
}

type cqRequest struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
}

type cqResponse struct {
	Status  string `json:"status"`
	Retcode int    `json:"retcode"`
	Data    struct {
		MessageId int64 `json:"message_id"`
	} `json:"data"`
	Message string `json:"message"`
	Wording string `json:"wording"`
}
