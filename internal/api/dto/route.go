package dto

import "commute-eta-service/internal/domain"

type RoutesResponse struct {
	Routes []*domain.Route `json:"routes"`
}

type PermissionResponse struct {
	State domain.PermissionState `json:"state"`
}

type ImportResponse struct {
	Imported int             `json:"imported"`
	Routes   []*domain.Route `json:"routes"`
}

// ErrorResponse is the body of every non-2xx reply. Fields carries
// per-field messages for validation failures.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
