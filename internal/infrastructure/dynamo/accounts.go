package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-auth-otp/internal/domain"
)

// AccountRepo stores accounts in one table (PK user_id) and guards email and
// phone uniqueness through rows in a second table (PK unique_key).
type AccountRepo struct {
	client    API
	tableName string
	keysTable string
}

func NewAccountRepo(client API, tableName, keysTable string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName, keysTable: keysTable}
}

// Create writes the account and its uniqueness rows in one transaction.
// Any already-present key cancels the whole write with domain.ErrConflict.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}

	writes := []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:                aws.String(r.tableName),
			Item:                     item,
			ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
			ExpressionAttributeNames: map[string]string{"#pk": fieldUserID},
		}},
		r.keyPut(emailKeyPrefix+a.Email, a.UserID),
	}
	if a.PhoneNumber != nil {
		writes = append(writes, r.keyPut(phoneKeyPrefix+*a.PhoneNumber, a.UserID))
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: writes})
	if err != nil {
		if conditionFailed(err) {
			return fmt.Errorf("account already exists: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findByKey(ctx, emailKeyPrefix+email)
}

func (r *AccountRepo) FindByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	return r.findByKey(ctx, phoneKeyPrefix+phone)
}

// Ping checks that the accounts table is reachable.
func (r *AccountRepo) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.tableName)})
	return err
}

func (r *AccountRepo) keyPut(key, userID string) types.TransactWriteItem {
	return types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(r.keysTable),
		Item: map[string]types.AttributeValue{
			fieldUniqueKey: strVal(key),
			fieldUserID:    strVal(userID),
		},
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldUniqueKey},
	}}
}

// findByKey resolves a uniqueness row to its account. Both reads are strongly
// consistent so an account is visible as soon as Create returns.
func (r *AccountRepo) findByKey(ctx context.Context, key string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.keysTable),
		Key:            strKey(fieldUniqueKey, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get account key: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	uid, ok := out.Item[fieldUserID].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("account key %q has no user_id", key)
	}

	acc, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldUserID, uid.Value),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if acc.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(acc.Item, &a); err != nil {
		return nil, fmt.Errorf("unmarshal account: %w", err)
	}
	return &a, nil
}
