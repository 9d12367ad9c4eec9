package dynamodb

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
)

// Single-table layout:
//
//	PK=USER#<uid>     SK=NOTE#<id>   note owned by uid
//	PK=USER#<uid>     SK=PROFILE     profile of uid
//	PK=NOTEID#<id>    SK=NOTEID#<id> marker enforcing id uniqueness across users
const (
	userPrefix    = "USER#"
	notePrefix    = "NOTE#"
	markerPrefix  = "NOTEID#"
	profileSK     = "PROFILE"
	entityNote    = "NOTE"
	entityProfile = "PROFILE"
	entityMarker  = "NOTE_ID"
)

type noteItem struct {
	PK         string  `dynamodbav:"PK"`
	SK         string  `dynamodbav:"SK"`
	EntityType string  `dynamodbav:"EntityType"`
	NoteID     string  `dynamodbav:"NoteID"`
	UserID     string  `dynamodbav:"UserID"`
	Title      string  `dynamodbav:"Title"`
	Content    string  `dynamodbav:"Content"`
	Summary    *string `dynamodbav:"Summary,omitempty"`
	CreatedAt  string  `dynamodbav:"CreatedAt"`
}

type markerItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	UserID     string `dynamodbav:"UserID"`
}

type profileItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	UserID     string `dynamodbav:"UserID"`
	Name       string `dynamodbav:"Name"`
	Email      string `dynamodbav:"Email"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

func userPK(userID string) string { return userPrefix + userID }
func noteSK(noteID string) string { return notePrefix + noteID }
func markerPK(noteID string) string { return markerPrefix + noteID }

func noteKey(noteID, userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
		"SK": &types.AttributeValueMemberS{Value: noteSK(noteID)},
	}
}

func markerKey(noteID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: markerPK(noteID)},
		"SK": &types.AttributeValueMemberS{Value: markerPK(noteID)},
	}
}

func profileKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
		"SK": &types.AttributeValueMemberS{Value: profileSK},
	}
}

func toNoteItem(n note.Note) (map[string]types.AttributeValue, error) {
	item := noteItem{
		PK:         userPK(n.UserID),
		SK:         noteSK(n.ID),
		EntityType: entityNote,
		NoteID:     n.ID,
		UserID:     n.UserID,
		Title:      n.Title,
		Content:    n.Content,
		Summary:    n.Summary,
		CreatedAt:  n.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	return attributevalue.MarshalMap(item)
}

func fromNoteItem(av map[string]types.AttributeValue) (note.Note, error) {
	var item noteItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return note.Note{}, fmt.Errorf("unmarshal note item: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return note.Note{}, fmt.Errorf("parse CreatedAt %q: %w", item.CreatedAt, err)
	}
	return note.Note{
		ID:        item.NoteID,
		Title:     item.Title,
		Content:   item.Content,
		Summary:   item.Summary,
		CreatedAt: createdAt,
		UserID:    item.UserID,
	}, nil
}

func toMarkerItem(n note.Note) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(markerItem{
		PK:         markerPK(n.ID),
		SK:         markerPK(n.ID),
		EntityType: entityMarker,
		UserID:     n.UserID,
	})
}

func toProfileItem(p note.Profile) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(profileItem{
		PK:         userPK(p.ID),
		SK:         profileSK,
		EntityType: entityProfile,
		UserID:     p.ID,
		Name:       p.Name,
		Email:      p.Email,
		CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func fromProfileItem(av map[string]types.AttributeValue) (note.Profile, error) {
	var item profileItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return note.Profile{}, fmt.Errorf("unmarshal profile item: %w", err)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
	return note.Profile{ID: item.UserID, Name: item.Name, Email: item.Email, CreatedAt: createdAt}, nil
}
