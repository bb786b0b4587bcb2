package journal

import "codeberg.org/mutker/hdsim/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("journal_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("journal_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("journal_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("journal_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("journal_transaction_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("journal_storage_access_failed")
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)

func init() {
	errors.RegisterMessage(ErrInvalidDBPath, "Journal database path is empty")
	errors.RegisterMessage(ErrSchemaInitFailed, "Failed to initialize journal schema")
	errors.RegisterMessage(ErrSchemaValidationFailed, "Failed to validate journal schema")
	errors.RegisterMessage(ErrSchemaMigrationFailed, "Failed to migrate journal schema")
	errors.RegisterMessage(ErrTransactionFailed, "Journal transaction failed")
	errors.RegisterMessage(ErrStorageAccess, "Failed to access journal storage")
}
