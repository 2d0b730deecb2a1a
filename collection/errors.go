package collection

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CollectionErrorKind names a registry-level failure.
type CollectionErrorKind string

const (
	KindStorageError        CollectionErrorKind = "StorageError"
	KindCollectionInputData CollectionErrorKind = "CollectionInputData"
	KindCollectionNotFound  CollectionErrorKind = "CollectionNotFound"
	KindValidateFields      CollectionErrorKind = "ValidateFields"
)

var (
	ErrStorage             = errors.New("storage error")
	ErrCollectionInputData = errors.New("data must be an object")
	ErrCollectionNotFound  = errors.New("collection not found")
	ErrValidateFields      = errors.New("invalid field data")
)

var collectionSentinels = map[CollectionErrorKind]error{
	KindStorageError:        ErrStorage,
	KindCollectionInputData: ErrCollectionInputData,
	KindCollectionNotFound:  ErrCollectionNotFound,
	KindValidateFields:      ErrValidateFields,
}

// CollectionError is returned by every Collections operation.
type CollectionError struct {
	Kind       CollectionErrorKind
	Collection string
	Fields     []string
	Err        error
}

func (e *CollectionError) Error() string {
	switch e.Kind {
	case KindStorageError:
		return fmt.Sprintf("storage error: %v", e.Err)
	case KindCollectionInputData:
		return fmt.Sprintf("data must be an object: %s", e.Collection)
	case KindCollectionNotFound:
		return fmt.Sprintf("collection not found: %s", e.Collection)
	case KindValidateFields:
		return fmt.Sprintf("invalid field data: %s - [%s]", e.Collection, strings.Join(e.Fields, ", "))
	}
	return string(e.Kind)
}

func (e *CollectionError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *CollectionError) Is(target error) bool {
	return collectionSentinels[e.Kind] == target
}

// MarshalJSON renders the error tagged by its kind, e.g.
// {"ValidateFields":{"collection":"users","fields":["age"]}}.
func (e *CollectionError) MarshalJSON() ([]byte, error) {
	var body any
	switch e.Kind {
	case KindStorageError:
		var inner any = errorString(e.Err)
		var se *StorageError
		if errors.As(e.Err, &se) {
			inner = se
		}
		body = map[string]any{"error": inner}
	case KindValidateFields:
		fields := e.Fields
		if fields == nil {
			fields = []string{}
		}
		body = map[string]any{"collection": e.Collection, "fields": fields}
	default:
		body = map[string]any{"collection": e.Collection}
	}
	return json.Marshal(map[string]any{string(e.Kind): body})
}

// StorageErrorKind names an Adapter-level failure.
type StorageErrorKind string

const (
	KindCollectionCreateTable   StorageErrorKind = "CollectionCreateTable"
	KindCollectionCreate        StorageErrorKind = "CollectionCreate"
	KindCollectionRemove        StorageErrorKind = "CollectionRemove"
	KindSchemaNotFound          StorageErrorKind = "CollectionNotFound"
	KindCollectionFieldExists   StorageErrorKind = "CollectionFieldExists"
	KindCollectionFieldNotFound StorageErrorKind = "CollectionFieldNotFound"
	KindCollectionAlterTable    StorageErrorKind = "CollectionAlterTable"
	KindCollectionFieldRemove   StorageErrorKind = "CollectionFieldRemove"
	KindValueNotFound           StorageErrorKind = "ValueNotFound"
	KindQuery                   StorageErrorKind = "Query"
)

var (
	ErrCreateTable      = errors.New("failed to create collection table")
	ErrCreateCollection = errors.New("failed to create collection")
	ErrRemoveCollection = errors.New("failed to remove collection")
	ErrSchemaNotFound   = errors.New("collection schema not found")
	ErrFieldExists      = errors.New("collection field already exists")
	ErrFieldNotFound    = errors.New("collection field not found")
	ErrAlterTable       = errors.New("failed to alter collection table")
	ErrFieldRemove      = errors.New("failed to remove collection field")
	ErrValueNotFound    = errors.New("value not found")
	ErrQuery            = errors.New("query failed")
)

var storageSentinels = map[StorageErrorKind]error{
	KindCollectionCreateTable:   ErrCreateTable,
	KindCollectionCreate:        ErrCreateCollection,
	KindCollectionRemove:        ErrRemoveCollection,
	KindSchemaNotFound:          ErrSchemaNotFound,
	KindCollectionFieldExists:   ErrFieldExists,
	KindCollectionFieldNotFound: ErrFieldNotFound,
	KindCollectionAlterTable:    ErrAlterTable,
	KindCollectionFieldRemove:   ErrFieldRemove,
	KindValueNotFound:           ErrValueNotFound,
	KindQuery:                   ErrQuery,
}

// StorageError is returned by Storage implementations. Err carries the
// underlying engine error, if any.
type StorageError struct {
	Kind       StorageErrorKind
	Collection string
	Field      string
	ID         string
	Err        error
}

// NewStorageError builds a StorageError for collection, wrapping cause.
func NewStorageError(kind StorageErrorKind, collection string, cause error) *StorageError {
	return &StorageError{Kind: kind, Collection: collection, Err: cause}
}

func (e *StorageError) Error() string {
	msg := string(e.Kind)
	if sentinel, ok := storageSentinels[e.Kind]; ok {
		msg = sentinel.Error()
	}
	var b strings.Builder
	b.WriteString(msg)
	b.WriteString(": ")
	b.WriteString(e.Collection)
	if e.Field != "" {
		b.WriteString(".")
		b.WriteString(e.Field)
	}
	if e.ID != "" {
		b.WriteString("/")
		b.WriteString(e.ID)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return storageSentinels[e.Kind] == target
}

// MarshalJSON renders the error tagged by its kind, e.g.
// {"ValueNotFound":{"collection":"users","id":"abc"}}.
func (e *StorageError) MarshalJSON() ([]byte, error) {
	body := map[string]any{"collection": e.Collection}
	if e.Field != "" {
		body["field"] = e.Field
	}
	if e.ID != "" {
		body["id"] = e.ID
	}
	if e.Kind == KindQuery && e.Err != nil {
		body["message"] = e.Err.Error()
	}
	return json.Marshal(map[string]any{string(e.Kind): body})
}

func inputDataError(collection string) error {
	return &CollectionError{Kind: KindCollectionInputData, Collection: collection}
}

func notFoundError(collection string) error {
	return &CollectionError{Kind: KindCollectionNotFound, Collection: collection}
}

func validateFieldsError(collection string, fields []string) error {
	return &CollectionError{Kind: KindValidateFields, Collection: collection, Fields: fields}
}

func storageError(collection string, err error) error {
	return &CollectionError{Kind: KindStorageError, Collection: collection, Err: err}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
