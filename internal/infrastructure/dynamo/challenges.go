package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-auth-otp/internal/domain"
)

// challengeItem is the stored form of an OTP challenge. Expiry is kept in
// unix milliseconds so condition expressions can compare it numerically.
type challengeItem struct {
	PhoneNumber string `dynamodbav:"phone_number"`
	SubjectID   string `dynamodbav:"subject_id"`
	Code        string `dynamodbav:"otp_code,omitempty"`
	ExpiresAt   int64  `dynamodbav:"expires_at,omitempty"`
}

func (c challengeItem) toDomain() *domain.OTPChallenge {
	ch := &domain.OTPChallenge{
		PhoneNumber: c.PhoneNumber,
		SubjectID:   c.SubjectID,
		Code:        c.Code,
	}
	if c.ExpiresAt != 0 {
		ch.ExpiresAt = time.UnixMilli(c.ExpiresAt).UTC()
	}
	return ch
}

// ChallengeRepo keeps one OTP challenge per phone number (PK phone_number).
// Rows are never deleted: the subject_id of a phone-only identity must
// survive consumption and later re-issues.
type ChallengeRepo struct {
	client    API
	tableName string
}

func NewChallengeRepo(client API, tableName string) *ChallengeRepo {
	return &ChallengeRepo{client: client, tableName: tableName}
}

// UpsertChallenge replaces the phone's code and expiry. The subject is
// overwritten when linked to an account, otherwise the stored one is kept
// and ch.SubjectID only applies to a new row.
func (r *ChallengeRepo) UpsertChallenge(ctx context.Context, ch *domain.OTPChallenge, linked bool) (*domain.OTPChallenge, error) {
	subjectExpr := "#sid = if_not_exists(#sid, :sid)"
	if linked {
		subjectExpr = "#sid = :sid"
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey(fieldPhoneNumber, ch.PhoneNumber),
		UpdateExpression: aws.String("SET #code = :code, #exp = :exp, " + subjectExpr),
		ExpressionAttributeNames: map[string]string{
			"#code": fieldOTPCode,
			"#exp":  fieldExpiresAt,
			"#sid":  fieldSubjectID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":code": strVal(ch.Code),
			":exp":  millis(ch.ExpiresAt),
			":sid":  strVal(ch.SubjectID),
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert challenge: %w", err)
	}
	var item challengeItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, fmt.Errorf("unmarshal challenge: %w", err)
	}
	return item.toDomain(), nil
}

// ConsumeChallenge clears the code and expiry only if code matches and the
// challenge has not expired at now, returning the subject. A failed
// condition, including a missing row, is domain.ErrNotFound.
func (r *ChallengeRepo) ConsumeChallenge(ctx context.Context, phone, code string, now time.Time) (string, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldPhoneNumber, phone),
		UpdateExpression:    aws.String("REMOVE #code, #exp"),
		ConditionExpression: aws.String("#code = :code AND #exp > :now"),
		ExpressionAttributeNames: map[string]string{
			"#code": fieldOTPCode,
			"#exp":  fieldExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":code": strVal(code),
			":now":  millis(now),
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		if conditionFailed(err) {
			return "", fmt.Errorf("no valid challenge: %w", domain.ErrNotFound)
		}
		return "", fmt.Errorf("consume challenge: %w", err)
	}
	var item challengeItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return "", fmt.Errorf("unmarshal challenge: %w", err)
	}
	return item.SubjectID, nil
}

func millis(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", t.UnixMilli())}
}
