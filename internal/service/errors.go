package service

import "errors"

var (
	// ErrBadRequest wraps validation failures. Nothing is persisted when it is returned.
	ErrBadRequest = errors.New("bad request")

	// ErrWorkflowNotFound means the addressed workflow does not exist in the workflow engine.
	// The inbound message has still been stored with a failed delivery status.
	ErrWorkflowNotFound = errors.New("workflow not found")

	ErrThreadNotFound      = errors.New("thread not found")
	ErrIntegrationNotFound = errors.New("integration not found")
	ErrIntegrationConflict = errors.New("integration with the same name already exists")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrWebhookNotFound     = errors.New("webhook not found")
)
