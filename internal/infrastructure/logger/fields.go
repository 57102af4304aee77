package logger

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Field keys shared by every component that logs about documents
const (
	FieldKind       = "kind"
	FieldDocumentID = "document_id"
	FieldAction     = "action"
	FieldStatus     = "status"
)

// Document returns the fields identifying a single document
func Document(kind string, id uuid.UUID) []zap.Field {
	return []zap.Field{
		zap.String(FieldKind, kind),
		zap.String(FieldDocumentID, id.String()),
	}
}

// Action returns the field naming a lifecycle action
func Action(action string) zap.Field {
	return zap.String(FieldAction, action)
}

// Status returns the field naming a document status
func Status(status string) zap.Field {
	return zap.String(FieldStatus, status)
}
