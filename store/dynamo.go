package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/bellapacxx/roshambo-backend/game"
	"github.com/bellapacxx/roshambo-backend/models"
)

// Secondary indexes the table needs for per-player history.
const (
	OwnerIndex    = "OwnerIndex"
	OpponentIndex = "OpponentIndex"
)

// matchItem is the DynamoDB shape of a MatchRecord.
type matchItem struct {
	PK             string     `dynamodbav:"PK"`
	SK             string     `dynamodbav:"SK"`
	Type           string     `dynamodbav:"Type"`
	OwnerPK        string     `dynamodbav:"OwnerPK"`
	OpponentPK     string     `dynamodbav:"OpponentPK,omitempty"`
	MatchID        string     `dynamodbav:"MatchID"`
	OwnerUserID    string     `dynamodbav:"OwnerUserID"`
	OwnerName      string     `dynamodbav:"OwnerName"`
	OpponentUserID string     `dynamodbav:"OpponentUserID,omitempty"`
	OpponentName   string     `dynamodbav:"OpponentName,omitempty"`
	Mode           string     `dynamodbav:"Mode"`
	Rounds         int        `dynamodbav:"Rounds"`
	MoveTimeout    int        `dynamodbav:"MoveTimeout"`
	Private        bool       `dynamodbav:"Private"`
	Config         string     `dynamodbav:"Config,omitempty"`
	Status         string     `dynamodbav:"Status"`
	Winner         string     `dynamodbav:"Winner,omitempty"`
	WinnerUserID   string     `dynamodbav:"WinnerUserID,omitempty"`
	EndReason      string     `dynamodbav:"EndReason,omitempty"`
	LifeOne        int        `dynamodbav:"LifeOne"`
	LifeTwo        int        `dynamodbav:"LifeTwo"`
	RoundsPlayed   int        `dynamodbav:"RoundsPlayed"`
	StartedAt      *time.Time `dynamodbav:"StartedAt,omitempty"`
	EndedAt        *time.Time `dynamodbav:"EndedAt,omitempty"`
	CreatedAt      time.Time  `dynamodbav:"CreatedAt"`
	UpdatedAt      time.Time  `dynamodbav:"UpdatedAt"`
}

func matchKey(id string) string  { return "MATCH#" + id }
func playerKey(id string) string { return "PLAYER#" + id }

func itemFromRecord(rec *models.MatchRecord) *matchItem {
	it := &matchItem{
		PK:             matchKey(rec.ID),
		SK:             matchKey(rec.ID),
		Type:           "MatchItem",
		OwnerPK:        playerKey(rec.OwnerUserID),
		MatchID:        rec.ID,
		OwnerUserID:    rec.OwnerUserID,
		OwnerName:      rec.OwnerName,
		OpponentUserID: rec.OpponentUserID,
		OpponentName:   rec.OpponentName,
		Mode:           rec.Mode,
		Rounds:         rec.Rounds,
		MoveTimeout:    rec.MoveTimeout,
		Private:        rec.Private,
		Config:         string(rec.Config),
		Status:         string(rec.Status),
		Winner:         rec.Winner,
		WinnerUserID:   rec.WinnerUserID,
		EndReason:      rec.EndReason,
		LifeOne:        rec.LifeOne,
		LifeTwo:        rec.LifeTwo,
		RoundsPlayed:   rec.RoundsPlayed,
		StartedAt:      rec.StartedAt,
		EndedAt:        rec.EndedAt,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
	if rec.OpponentUserID != "" {
		it.OpponentPK = playerKey(rec.OpponentUserID)
	}
	return it
}

func recordFromItem(it *matchItem) models.MatchRecord {
	rec := models.MatchRecord{
		ID:             it.MatchID,
		OwnerUserID:    it.OwnerUserID,
		OwnerName:      it.OwnerName,
		OpponentUserID: it.OpponentUserID,
		OpponentName:   it.OpponentName,
		Mode:           it.Mode,
		Rounds:         it.Rounds,
		MoveTimeout:    it.MoveTimeout,
		Private:        it.Private,
		Status:         models.MatchStatus(it.Status),
		Winner:         it.Winner,
		WinnerUserID:   it.WinnerUserID,
		EndReason:      it.EndReason,
		LifeOne:        it.LifeOne,
		LifeTwo:        it.LifeTwo,
		RoundsPlayed:   it.RoundsPlayed,
		StartedAt:      it.StartedAt,
		EndedAt:        it.EndedAt,
		CreatedAt:      it.CreatedAt,
		UpdatedAt:      it.UpdatedAt,
	}
	if it.Config != "" {
		rec.Config = []byte(it.Config)
	}
	return rec
}

// DynamoStore keeps match records in a single DynamoDB table keyed by
// PK/SK = MATCH#<id>.
type DynamoStore struct {
	d         dynamodbiface.DynamoDBAPI
	tableName string
	now       func() time.Time
}

func NewDynamoStore(d dynamodbiface.DynamoDBAPI, tableName string) *DynamoStore {
	return &DynamoStore{d: d, tableName: tableName, now: func() time.Time { return time.Now().UTC() }}
}

func isConditionFailed(err error) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException
}

func (s *DynamoStore) put(ctx context.Context, rec *models.MatchRecord, condition string, values map[string]*dynamodb.AttributeValue) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	rec.UpdatedAt = s.now()

	av, err := dynamodbattribute.MarshalMap(itemFromRecord(rec))
	if err != nil {
		return fmt.Errorf("marshal match %s: %w", rec.ID, err)
	}
	input := &dynamodb.PutItemInput{
		TableName:                aws.String(s.tableName),
		Item:                     av,
		ConditionExpression:      aws.String(condition),
		ExpressionAttributeNames: map[string]*string{"#st": aws.String("Status")},
	}
	if values != nil {
		input.ExpressionAttributeValues = values
	} else {
		input.ExpressionAttributeNames = nil
	}
	if _, err := s.d.PutItemWithContext(ctx, input); err != nil && !isConditionFailed(err) {
		return fmt.Errorf("put match %s: %w", rec.ID, err)
	}
	return nil
}

func (s *DynamoStore) Create(ctx context.Context, rec *models.MatchRecord) error {
	return s.put(ctx, rec, "attribute_not_exists(PK)", nil)
}

func (s *DynamoStore) MarkStarted(ctx context.Context, rec *models.MatchRecord) error {
	return s.put(ctx, rec, "attribute_not_exists(PK) OR #st <> :completed", map[string]*dynamodb.AttributeValue{
		":completed": {S: aws.String(string(models.MatchCompleted))},
	})
}

// MarkCompleted only sets result fields so the offer's settings survive.
func (s *DynamoStore) MarkCompleted(ctx context.Context, rec *models.MatchRecord) error {
	now := s.now()
	if rec.EndedAt == nil {
		rec.EndedAt = &now
	}
	values, err := dynamodbattribute.MarshalMap(map[string]any{
		":status":      string(models.MatchCompleted),
		":completed":   string(models.MatchCompleted),
		":winner":      rec.Winner,
		":winnerUser":  rec.WinnerUserID,
		":reason":      rec.EndReason,
		":lifeOne":     rec.LifeOne,
		":lifeTwo":     rec.LifeTwo,
		":played":      rec.RoundsPlayed,
		":ended":       *rec.EndedAt,
		":updated":     now,
		":matchID":     rec.ID,
		":owner":       rec.OwnerUserID,
		":ownerPK":     playerKey(rec.OwnerUserID),
		":ownerName":   rec.OwnerName,
		":opponent":    rec.OpponentUserID,
		":opponentPK":  playerKey(rec.OpponentUserID),
		":oppName":     rec.OpponentName,
		":mode":        rec.Mode,
		":rounds":      rec.Rounds,
		":moveTimeout": rec.MoveTimeout,
		":type":        "MatchItem",
	})
	if err != nil {
		return fmt.Errorf("marshal match %s: %w", rec.ID, err)
	}

	_, err = s.d.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"PK": {S: aws.String(matchKey(rec.ID))},
			"SK": {S: aws.String(matchKey(rec.ID))},
		},
		UpdateExpression: aws.String("SET #st = :status, Winner = :winner, WinnerUserID = :winnerUser, " +
			"EndReason = :reason, LifeOne = :lifeOne, LifeTwo = :lifeTwo, RoundsPlayed = :played, " +
			"EndedAt = :ended, UpdatedAt = :updated, MatchID = :matchID, OpponentUserID = :opponent, " +
			"OpponentPK = :opponentPK, OpponentName = :oppName, " +
			"OwnerUserID = if_not_exists(OwnerUserID, :owner), OwnerPK = if_not_exists(OwnerPK, :ownerPK), " +
			"OwnerName = if_not_exists(OwnerName, :ownerName), #mode = if_not_exists(#mode, :mode), " +
			"Rounds = if_not_exists(Rounds, :rounds), MoveTimeout = if_not_exists(MoveTimeout, :moveTimeout), " +
			"#type = if_not_exists(#type, :type), CreatedAt = if_not_exists(CreatedAt, :updated)"),
		ConditionExpression: aws.String("attribute_not_exists(PK) OR #st <> :completed"),
		ExpressionAttributeNames: map[string]*string{
			"#st":   aws.String("Status"),
			"#mode": aws.String("Mode"),
			"#type": aws.String("Type"),
		},
		ExpressionAttributeValues: values,
	})
	if err != nil && !isConditionFailed(err) {
		return fmt.Errorf("complete match %s: %w", rec.ID, err)
	}
	return nil
}

// Delete removes a match that never started.
func (s *DynamoStore) Delete(ctx context.Context, id string) error {
	_, err := s.d.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"PK": {S: aws.String(matchKey(id))},
			"SK": {S: aws.String(matchKey(id))},
		},
		ConditionExpression:      aws.String("#st = :created"),
		ExpressionAttributeNames: map[string]*string{"#st": aws.String("Status")},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":created": {S: aws.String(string(models.MatchCreated))},
		},
	})
	if err != nil && !isConditionFailed(err) {
		return fmt.Errorf("delete match %s: %w", id, err)
	}
	return nil
}

func (s *DynamoStore) Get(ctx context.Context, id string) (*models.MatchRecord, error) {
	out, err := s.d.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"PK": {S: aws.String(matchKey(id))},
			"SK": {S: aws.String(matchKey(id))},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get match %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, game.ErrMatchNotFound
	}
	var it matchItem
	if err := dynamodbattribute.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("read match %s: %w", id, err)
	}
	rec := recordFromItem(&it)
	return &rec, nil
}

// ListByPlayer queries both player indexes and merges them newest first.
func (s *DynamoStore) ListByPlayer(ctx context.Context, userID string, limit int) ([]models.MatchRecord, error) {
	var recs []models.MatchRecord
	for _, idx := range []struct{ name, attr string }{{OwnerIndex, "OwnerPK"}, {OpponentIndex, "OpponentPK"}} {
		out, err := s.d.QueryWithContext(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			IndexName:              aws.String(idx.name),
			KeyConditionExpression: aws.String(idx.attr + " = :pk"),
			ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
				":pk": {S: aws.String(playerKey(userID))},
			},
			ScanIndexForward: aws.Bool(false),
			Limit:            aws.Int64(int64(limit)),
		})
		if err != nil {
			return nil, fmt.Errorf("query %s for %s: %w", idx.name, userID, err)
		}
		var items []matchItem
		if err := dynamodbattribute.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("read matches for %s: %w", userID, err)
		}
		for i := range items {
			recs = append(recs, recordFromItem(&items[i]))
		}
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}
