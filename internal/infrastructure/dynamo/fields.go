package dynamo

// DynamoDB attribute names used in key and update expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID      = "user_id"
	fieldUniqueKey   = "unique_key"
	fieldPhoneNumber = "phone_number"
	fieldSubjectID   = "subject_id"
	fieldOTPCode     = "otp_code"
	fieldExpiresAt   = "expires_at"
)

// Prefixes for rows in the account_keys table. One row per unique value
// makes email and phone uniqueness part of the account's create transaction.
const (
	emailKeyPrefix = "email#"
	phoneKeyPrefix = "phone#"
)
