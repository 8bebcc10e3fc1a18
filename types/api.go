package types

type StatusResponse struct {
	CurrentActionID int `json:"currentActionId"`
}

type LoginRequest struct {
	Username   string `json:"username"`
	FacebookID string `json:"facebookId"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type EventsResponse struct {
	Events []Event `json:"events"`
}

type UsersResponse struct {
	Users []User `json:"users"`
}

type ObservationsResponse struct {
	Observations []Observation `json:"observations"`
}

type CreateObservationRequest struct {
	Content string `json:"content"`
}

type SetCompletedRequest struct {
	Completed bool `json:"completed"`
}
