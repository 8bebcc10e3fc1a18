package actions

import (
	"time"
)

// Action is a state-changing request recorded in the action log. Handlers
// registered for its type apply it to the state tables.
type Action interface {
	GetId() int
	GetType() string
	SetId(id int)
}

type GenericAction struct {
	// The action ID, assigned by the action log
	Id int `json:"id"`
	// The action type
	Type string `json:"type"`
	// The action timestamp
	Timestamp time.Time `json:"timestamp"`
}

func NewGenericAction(actionType string) GenericAction {
	return GenericAction{
		Type:      actionType,
		Timestamp: time.Now().UTC(),
	}
}

func (a GenericAction) GetId() int {
	return a.Id
}

func (a *GenericAction) SetId(id int) {
	a.Id = id
}

func (a *GenericAction) GetType() string {
	return a.Type
}

// SyncActionType is dispatched once per database to create the schema.
const SyncActionType = "__sync__"

type SyncAction struct {
	GenericAction
}
