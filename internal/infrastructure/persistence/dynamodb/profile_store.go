package dynamodb

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
)

func (s *Store) GetProfile(ctx context.Context, userID string) (note.Profile, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       profileKey(userID),
	})
	if err != nil {
		return note.Profile{}, storeErr("GetProfile", err)
	}
	if out.Item == nil {
		return note.Profile{}, apperrors.NotFound(apperrors.CodeProfileNotFound, "profile not found").
			WithResource("profile").
			WithUserID(userID).
			Build()
	}
	p, err := fromProfileItem(out.Item)
	if err != nil {
		return note.Profile{}, decodeErr("GetProfile", err)
	}
	return p, nil
}

func (s *Store) CreateProfile(ctx context.Context, p note.Profile) (note.Profile, error) {
	if err := note.Validate(p); err != nil {
		return note.Profile{}, err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	item, err := toProfileItem(p)
	if err != nil {
		return note.Profile{}, decodeErr("CreateProfile", err)
	}
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return note.Profile{}, storeErr("CreateProfile", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.tableName),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return s.GetProfile(ctx, p.ID)
		}
		return note.Profile{}, storeErr("CreateProfile", err)
	}
	return p, nil
}

var _ repository.ProfileStore = (*Store)(nil)
