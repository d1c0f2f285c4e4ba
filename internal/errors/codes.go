package errors

// Error code constants
// Format: CATEGORY_SPECIFIC_DETAIL
// Frontends map these codes to localized messages.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // login required
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // wrong email/password
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"      // not the order owner, not an admin
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND" // role information missing
	AuthzAdminOnly    = "AUTHZ_ADMIN_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationRequired     = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"

	// ==================== Products (PRODUCT_) ====================
	ProductNotFound    = "PRODUCT_NOT_FOUND"
	ProductUnavailable = "PRODUCT_UNAVAILABLE"

	// ==================== Orders (ORDER_) ====================
	OrderNotFound             = "ORDER_NOT_FOUND"
	OrderEmpty                = "ORDER_EMPTY"                  // checkout with no line items
	OrderNotMutable           = "ORDER_NOT_MUTABLE"            // item change outside cart state
	OrderItemNotFound         = "ORDER_ITEM_NOT_FOUND"         // removing an absent line item
	OrderAlreadyCheckedOut    = "ORDER_ALREADY_CHECKED_OUT"    // checkout re-invoked past cart
	OrderInvalidTransition    = "ORDER_INVALID_TRANSITION"     // edge not in the lifecycle graph
	OrderInvalidPaymentMethod = "ORDER_INVALID_PAYMENT_METHOD" // method outside the accepted set
	OrderInsufficientStock    = "ORDER_INSUFFICIENT_STOCK"
	OrderInvalidAddress       = "ORDER_INVALID_ADDRESS" // missing street or city

	// ==================== Promotions (PROMO_) ====================
	PromoInvalidCode         = "PROMO_INVALID_CODE" // unknown or inactive code
	PromoNotStarted          = "PROMO_NOT_STARTED"
	PromoExpired             = "PROMO_EXPIRED"
	PromoUsageLimitReached   = "PROMO_USAGE_LIMIT_REACHED"
	PromoPerUserLimitReached = "PROMO_PER_USER_LIMIT_REACHED"
	PromoBelowMinimum        = "PROMO_BELOW_MINIMUM" // order amount under min_order_amount
	PromoCodeExists          = "PROMO_CODE_EXISTS"   // admin creating a duplicate code

	// ==================== Uploads (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
)
