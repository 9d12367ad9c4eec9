// Package dynamodb implements the note and profile stores on a single
// DynamoDB table. Ownership is part of the primary key, so a note can only be
// addressed through its owner's partition.
package dynamodb

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
)

// Client is the subset of the DynamoDB API the stores use.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store implements repository.NoteStore and repository.ProfileStore.
type Store struct {
	client    Client
	tableName string
	logger    *zap.Logger
}

// NewStore creates a store on tableName.
func NewStore(client Client, tableName string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, tableName: tableName, logger: logger}
}

// List queries the owner's partition and returns notes newest first.
func (s *Store) List(ctx context.Context, userID string) ([]note.Note, error) {
	if err := note.RequireOwner(userID, "List"); err != nil {
		return nil, err
	}

	keyCond := expression.Key("PK").Equal(expression.Value(userPK(userID))).
		And(expression.Key("SK").BeginsWith(notePrefix))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, storeErr("List", err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	notes := make([]note.Note, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storeErr("List", err)
		}
		for _, item := range page.Items {
			n, err := fromNoteItem(item)
			if err != nil {
				return nil, decodeErr("List", err)
			}
			notes = append(notes, n)
		}
	}

	note.SortNewestFirst(notes)

	s.logger.Debug("Notes listed",
		zap.String("userID", userID),
		zap.Int("count", len(notes)),
	)
	return notes, nil
}

// Create writes the note and its id marker in one transaction; either
// condition failing means the id is taken.
func (s *Store) Create(ctx context.Context, n note.Note) (note.Note, error) {
	if err := note.Validate(n); err != nil {
		return note.Note{}, err
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	item, err := toNoteItem(n)
	if err != nil {
		return note.Note{}, decodeErr("Create", err)
	}
	marker, err := toMarkerItem(n)
	if err != nil {
		return note.Note{}, decodeErr("Create", err)
	}

	notExists, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return note.Note{}, storeErr("Create", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(s.tableName),
				Item:                     item,
				ConditionExpression:      notExists.Condition(),
				ExpressionAttributeNames: notExists.Names(),
			}},
			{Put: &types.Put{
				TableName:                aws.String(s.tableName),
				Item:                     marker,
				ConditionExpression:      notExists.Condition(),
				ExpressionAttributeNames: notExists.Names(),
			}},
		},
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			return note.Note{}, apperrors.Store(apperrors.CodeDuplicateID, "a note with this id already exists").
				WithOperation("Create").
				WithResource("note").
				WithRetryable(false).
				WithCause(err).
				Build()
		}
		return note.Note{}, storeErr("Create", err)
	}

	s.logger.Debug("Note created",
		zap.String("noteID", n.ID),
		zap.String("userID", n.UserID),
	)
	return n.Clone(), nil
}

// Update sets title and content, and summary only when one is supplied.
func (s *Store) Update(ctx context.Context, n note.Note) (note.Note, error) {
	if err := note.RequireOwner(n.UserID, "Update"); err != nil {
		return note.Note{}, err
	}
	if err := note.Validate(n); err != nil {
		return note.Note{}, err
	}

	update := expression.Set(expression.Name("Title"), expression.Value(n.Title)).
		Set(expression.Name("Content"), expression.Value(n.Content))
	if n.Summary != nil {
		update = update.Set(expression.Name("Summary"), expression.Value(*n.Summary))
	}
	return s.updateScoped(ctx, "Update", n.ID, n.UserID, update)
}

// UpdateSummary sets only the summary attribute.
func (s *Store) UpdateSummary(ctx context.Context, n note.Note) (note.Note, error) {
	if err := note.RequireOwner(n.UserID, "UpdateSummary"); err != nil {
		return note.Note{}, err
	}
	if err := note.ValidateSummary(n.Summary); err != nil {
		return note.Note{}, err
	}

	update := expression.Set(expression.Name("Summary"), expression.Value(*n.Summary))
	return s.updateScoped(ctx, "UpdateSummary", n.ID, n.UserID, update)
}

func (s *Store) updateScoped(ctx context.Context, operation, noteID, userID string, update expression.UpdateBuilder) (note.Note, error) {
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return note.Note{}, storeErr(operation, err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       noteKey(noteID, userID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return note.Note{}, notFound(operation, noteID, userID)
		}
		return note.Note{}, storeErr(operation, err)
	}

	updated, err := fromNoteItem(out.Attributes)
	if err != nil {
		return note.Note{}, decodeErr(operation, err)
	}

	s.logger.Debug("Note updated",
		zap.String("operation", operation),
		zap.String("noteID", noteID),
		zap.String("userID", userID),
	)
	return updated, nil
}

// Delete reads the owner's item first, then removes it with its id marker.
func (s *Store) Delete(ctx context.Context, noteID, userID string) (string, error) {
	if err := note.RequireOwner(userID, "Delete"); err != nil {
		return "", err
	}

	got, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            noteKey(noteID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", storeErr("Delete", err)
	}
	if got.Item == nil {
		return "", notFound("Delete", noteID, userID)
	}

	exists, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return "", storeErr("Delete", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName:                aws.String(s.tableName),
				Key:                      noteKey(noteID, userID),
				ConditionExpression:      exists.Condition(),
				ExpressionAttributeNames: exists.Names(),
			}},
			{Delete: &types.Delete{
				TableName: aws.String(s.tableName),
				Key:       markerKey(noteID),
			}},
		},
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			// Removed between the read and the write.
			return "", notFound("Delete", noteID, userID)
		}
		return "", storeErr("Delete", err)
	}

	s.logger.Debug("Note deleted",
		zap.String("noteID", noteID),
		zap.String("userID", userID),
	)
	return noteID, nil
}

func storeErr(operation string, err error) error {
	if ctxErr := apperrors.FromContext(err, operation); ctxErr != nil {
		return ctxErr
	}
	b := apperrors.Store(apperrors.CodeStoreUnavailable, "dynamodb operation failed").
		WithOperation(operation).
		WithResource("note").
		WithCause(err)

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		b = b.WithDetails(apiErr.ErrorCode() + ": " + apiErr.ErrorMessage())
		if apiErr.ErrorFault() == smithy.FaultClient {
			var throttled *types.ProvisionedThroughputExceededException
			b = b.WithRetryable(errors.As(err, &throttled))
		}
	}
	return b.Build()
}

func decodeErr(operation string, err error) error {
	return apperrors.Store(apperrors.CodeDecodeFailed, "stored note could not be decoded").
		WithOperation(operation).
		WithResource("note").
		WithRetryable(false).
		WithCause(err).
		Build()
}

func notFound(operation, noteID, userID string) error {
	return apperrors.NotFound(apperrors.CodeNoteNotFound, "Note not found or you don't have permission to access it").
		WithOperation(operation).
		WithResource("note").
		WithDetails(noteID).
		WithUserID(userID).
		Build()
}

var _ repository.NoteStore = (*Store)(nil)
