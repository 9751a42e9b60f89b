// Package errors classifies storage errors of the knowledge repository.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// DatabaseErrorType is the class of a database error.
type DatabaseErrorType int

const (
	ErrorTypeUnknown DatabaseErrorType = iota
	ErrorTypeDuplicateKey
	ErrorTypeConstraintViolation
	ErrorTypeInvalidJSON
	ErrorTypeDataTooLong
	ErrorTypeNotFound
	ErrorTypeDeadlock
	ErrorTypeConnectionError
	ErrorTypeInvalidValue
)

var typeNames = map[DatabaseErrorType]string{
	ErrorTypeUnknown:             "unknown",
	ErrorTypeDuplicateKey:        "duplicate_key",
	ErrorTypeConstraintViolation: "constraint_violation",
	ErrorTypeInvalidJSON:         "invalid_json",
	ErrorTypeDataTooLong:         "data_too_long",
	ErrorTypeNotFound:            "not_found",
	ErrorTypeDeadlock:            "deadlock",
	ErrorTypeConnectionError:     "connection",
	ErrorTypeInvalidValue:        "invalid_value",
}

func (t DatabaseErrorType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DatabaseErrorType(%d)", int(t))
}

// DatabaseError wraps a database error with its class.
type DatabaseError struct {
	Type         DatabaseErrorType
	OriginalErr  error
	MySQLErrCode uint16
	Message      string
}

func (e *DatabaseError) Error() string {
	if e.MySQLErrCode > 0 {
		return fmt.Sprintf("%s (MySQL error %d): %v", e.Message, e.MySQLErrCode, e.OriginalErr)
	}
	return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
}

func (e *DatabaseError) Unwrap() error {
	return e.OriginalErr
}

type mysqlClass struct {
	typ DatabaseErrorType
	msg string
}

// mysqlCodes maps server error numbers to classes.
var mysqlCodes = map[uint16]mysqlClass{
	1062: {ErrorTypeDuplicateKey, "duplicate key constraint violation"},
	3140: {ErrorTypeInvalidJSON, "invalid JSON data"},
	3141: {ErrorTypeInvalidJSON, "invalid JSON data"},
	3142: {ErrorTypeInvalidJSON, "invalid JSON data"},
	3143: {ErrorTypeInvalidJSON, "invalid JSON data"},
	1406: {ErrorTypeDataTooLong, "data too long for column"},
	1451: {ErrorTypeConstraintViolation, "row is referenced by another table"},
	1452: {ErrorTypeConstraintViolation, "foreign key constraint violation"},
	1213: {ErrorTypeDeadlock, "deadlock detected"},
	1205: {ErrorTypeDeadlock, "lock wait timeout"},
	1048: {ErrorTypeInvalidValue, "column cannot be null"},
	1265: {ErrorTypeInvalidValue, "invalid or truncated value"},
	1366: {ErrorTypeInvalidValue, "invalid or truncated value"},
}

var connectionKeywords = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"invalid connection",
	"bad connection",
	"can't connect",
	"dial tcp",
}

// ClassifyDBError classifies err. GORM's ErrRecordNotFound, MySQL server
// errors and network failures are recognized; everything else is unknown.
// A nil err yields nil.
//
//	if pkgerrors.IsDuplicateKeyError(err) {
//	    // the technology exists, update it instead
//	}
func ClassifyDBError(err error) *DatabaseError {
	if err == nil {
		return nil
	}
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return dbErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &DatabaseError{Type: ErrorTypeNotFound, OriginalErr: err, Message: "record not found"}
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		class, ok := mysqlCodes[mysqlErr.Number]
		if !ok {
			class = mysqlClass{ErrorTypeUnknown, "MySQL error"}
		}
		return &DatabaseError{Type: class.typ, OriginalErr: err, MySQLErrCode: mysqlErr.Number, Message: class.msg}
	}

	if errors.Is(err, mysql.ErrInvalidConn) || isConnectionError(err.Error()) {
		return &DatabaseError{Type: ErrorTypeConnectionError, OriginalErr: err, Message: "database connection error"}
	}
	return &DatabaseError{Type: ErrorTypeUnknown, OriginalErr: err, Message: "unknown database error"}
}

func isConnectionError(msg string) bool {
	msg = strings.ToLower(msg)
	for _, kw := range connectionKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

func isType(err error, t DatabaseErrorType) bool {
	dbErr := ClassifyDBError(err)
	return dbErr != nil && dbErr.Type == t
}

// IsDuplicateKeyError reports a unique constraint violation.
func IsDuplicateKeyError(err error) bool { return isType(err, ErrorTypeDuplicateKey) }

// IsNotFoundError reports a missing record.
func IsNotFoundError(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsRetryable reports errors worth retrying: deadlocks, lock wait
// timeouts and lost connections.
func IsRetryable(err error) bool {
	dbErr := ClassifyDBError(err)
	return dbErr != nil && (dbErr.Type == ErrorTypeDeadlock || dbErr.Type == ErrorTypeConnectionError)
}
