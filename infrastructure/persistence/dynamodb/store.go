// Package dynamodb provides a ports.Store on a single DynamoDB table.
//
// Every record is written twice in one transaction. The canonical copy sits
// at PK <TYPE>#<id>, SK METADATA#v0 and serves strongly consistent reads by
// id. The listing copy sits in the user's partition USER#<user_id> under the
// sort key <TYPE>#<ordering time>#<id>, so a Query on the partition returns
// one record type already ordered. A quiz gets a third copy at
// CONCEPT#<concept_id>, QUIZ#v0 for reads by concept.
package dynamodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/domain/core/entities"
	apperrors "mentraflow-backend/pkg/errors"
)

// Record types, used as key prefixes.
const (
	typeImport  = "IMPORT"
	typeConcept = "CONCEPT"
	typeQuiz    = "QUIZ"
	typeNode    = "NODE"
	typeRecall  = "RECALL"
)

const (
	metadataSK      = "METADATA#v0"
	quizByConceptSK = "QUIZ#v0"
)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Config names the table.
type Config struct {
	TableName string
}

// Store implements ports.Store using DynamoDB.
type Store struct {
	client API
	config Config
	logger *zap.Logger
}

var _ ports.Store = (*Store)(nil)

func NewStore(client API, config Config, logger *zap.Logger) *Store {
	return &Store{client: client, config: config, logger: logger}
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.config.TableName)})
	if err != nil {
		return dbError("describe table", err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *Store) Close() error { return nil }

func userPK(userID string) string {
	return "USER#" + userID
}

// sortKey orders records of one type by at. The zero-padded nanosecond
// count sorts lexically in time order.
func sortKey(recordType string, at time.Time, id string) string {
	return fmt.Sprintf("%s#%020d#%s", recordType, at.UnixNano(), id)
}

func lookupKey(recordType, id string) string {
	return recordType + "#" + id
}

func stringValue(v string) *types.AttributeValueMemberS {
	return &types.AttributeValueMemberS{Value: v}
}

// withKeys copies attrs under the given primary key.
func withKeys(attrs map[string]types.AttributeValue, recordType, pk, sk string) map[string]types.AttributeValue {
	item := make(map[string]types.AttributeValue, len(attrs)+3)
	for k, v := range attrs {
		item[k] = v
	}
	item["PK"] = stringValue(pk)
	item["SK"] = stringValue(sk)
	item["EntityType"] = stringValue(recordType)
	return item
}

// copies marshals v into its canonical item and its listing item.
func copies(v any, recordType, userID, id string, at time.Time) (canonical, listing map[string]types.AttributeValue, err error) {
	attrs, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal %s: %w", recordType, err)
	}
	canonical = withKeys(attrs, recordType, lookupKey(recordType, id), metadataSK)
	listing = withKeys(attrs, recordType, userPK(userID), sortKey(recordType, at, id))
	return canonical, listing, nil
}

// write stores every copy of one record atomically. A failed condition on
// any copy is reported as a conflict.
func (s *Store) write(ctx context.Context, recordType, id string, puts ...types.Put) error {
	items := make([]types.TransactWriteItem, 0, len(puts))
	for i := range puts {
		put := puts[i]
		put.TableName = aws.String(s.config.TableName)
		items = append(items, types.TransactWriteItem{Put: &put})
	}
	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if conditionFailed(err) {
			return apperrors.NewConflictError(fmt.Sprintf("%s %s is final and cannot be overwritten", strings.ToLower(recordType), id)).WithCause(err)
		}
		return dbError("save "+recordType, err)
	}
	s.logger.Debug("Item saved", zap.String("entityType", recordType), zap.String("entityID", id), zap.Int("copies", len(items)))
	return nil
}

// save writes the canonical and listing copies of v.
func (s *Store) save(ctx context.Context, v any, recordType, userID, id string, at time.Time) error {
	canonical, listing, err := copies(v, recordType, userID, id, at)
	if err != nil {
		return err
	}
	return s.write(ctx, recordType, id, types.Put{Item: canonical}, types.Put{Item: listing})
}

// getItem reads one record by primary key with a strongly consistent read.
func getItem[T any](ctx context.Context, s *Store, pk, sk, resource string) (*T, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.TableName),
		Key:            map[string]types.AttributeValue{"PK": stringValue(pk), "SK": stringValue(sk)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, dbError("get "+resource, err)
	}
	if len(out.Item) == 0 {
		return nil, apperrors.NewNotFoundError(resource)
	}
	var v T
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, apperrors.NewDatabaseError("decode "+resource, err)
	}
	return &v, nil
}

// queryOptions shapes a partition query.
type queryOptions struct {
	recordType string
	newest     bool
	limit      int
	filter     *expression.ConditionBuilder
}

// queryUser pages through a user's records of one type until limit records
// match. Limit is applied after the filter, so it cannot go on the request.
func queryUser[T any](ctx context.Context, s *Store, userID string, opts queryOptions) ([]*T, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(userPK(userID))).
		And(expression.Key("SK").BeginsWith(opts.recordType + "#"))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if opts.filter != nil {
		builder = builder.WithFilter(*opts.filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(!opts.newest),
	}

	out := []*T{}
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, dbError("query "+opts.recordType, err)
		}
		for _, item := range page.Items {
			var v T
			if err := attributevalue.UnmarshalMap(item, &v); err != nil {
				s.logger.Warn("Failed to parse item", zap.String("entityType", opts.recordType), zap.Error(err))
				continue
			}
			out = append(out, &v)
			if opts.limit > 0 && len(out) == opts.limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (s *Store) SaveImport(ctx context.Context, imp *entities.Import) error {
	return s.save(ctx, imp, typeImport, imp.UserID, imp.ID, imp.CreatedAt)
}

func (s *Store) GetImport(ctx context.Context, importID string) (*entities.Import, error) {
	return getItem[entities.Import](ctx, s, lookupKey(typeImport, importID), metadataSK, "import")
}

func (s *Store) ListImports(ctx context.Context, userID string, limit int) ([]*entities.Import, error) {
	return queryUser[entities.Import](ctx, s, userID, queryOptions{recordType: typeImport, newest: true, limit: limit})
}

func (s *Store) SaveConcept(ctx context.Context, concept *entities.Concept) error {
	return s.save(ctx, concept, typeConcept, concept.UserID, concept.ID, concept.CreatedAt)
}

func (s *Store) GetConcept(ctx context.Context, conceptID string) (*entities.Concept, error) {
	return getItem[entities.Concept](ctx, s, lookupKey(typeConcept, conceptID), metadataSK, "concept")
}

func (s *Store) ListConcepts(ctx context.Context, userID string, limit int) ([]*entities.Concept, error) {
	return queryUser[entities.Concept](ctx, s, userID, queryOptions{recordType: typeConcept, newest: true, limit: limit})
}

// SaveQuiz also writes the quiz under its concept; the latest quiz for a
// concept wins.
func (s *Store) SaveQuiz(ctx context.Context, quiz *entities.Quiz) error {
	canonical, listing, err := copies(quiz, typeQuiz, quiz.UserID, quiz.ID, quiz.CreatedAt)
	if err != nil {
		return err
	}
	byConcept := withKeys(canonical, typeQuiz, lookupKey(typeConcept, quiz.ConceptID), quizByConceptSK)
	return s.write(ctx, typeQuiz, quiz.ID,
		types.Put{Item: canonical}, types.Put{Item: listing}, types.Put{Item: byConcept})
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (*entities.Quiz, error) {
	return getItem[entities.Quiz](ctx, s, lookupKey(typeQuiz, quizID), metadataSK, "quiz")
}

func (s *Store) GetQuizByConcept(ctx context.Context, conceptID string) (*entities.Quiz, error) {
	return getItem[entities.Quiz](ctx, s, lookupKey(typeConcept, conceptID), quizByConceptSK, "quiz")
}

func (s *Store) ListQuizzes(ctx context.Context, userID string, limit int) ([]*entities.Quiz, error) {
	return queryUser[entities.Quiz](ctx, s, userID, queryOptions{recordType: typeQuiz, newest: true, limit: limit})
}

func (s *Store) SaveNode(ctx context.Context, node *entities.KnowledgeNode) error {
	return s.save(ctx, node, typeNode, node.UserID, node.ID, node.CreatedAt)
}

func (s *Store) GetNode(ctx context.Context, nodeID string) (*entities.KnowledgeNode, error) {
	return getItem[entities.KnowledgeNode](ctx, s, lookupKey(typeNode, nodeID), metadataSK, "knowledge node")
}

func (s *Store) ListNodes(ctx context.Context, userID string, limit int) ([]*entities.KnowledgeNode, error) {
	return queryUser[entities.KnowledgeNode](ctx, s, userID, queryOptions{recordType: typeNode, limit: limit})
}

// SaveRecallSession orders sessions by due date, which never changes after
// creation, so rewrites land on the same key. The canonical copy is only
// written while the stored session is not completed.
func (s *Store) SaveRecallSession(ctx context.Context, session *entities.RecallSession) error {
	canonical, listing, err := copies(session, typeRecall, session.UserID, session.ID, session.DueDate)
	if err != nil {
		return err
	}
	notFinal := expression.AttributeNotExists(expression.Name("PK")).
		Or(expression.Name("Status").NotEqual(expression.Value(string(entities.SessionStatusCompleted))))
	expr, err := expression.NewBuilder().WithCondition(notFinal).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}
	return s.write(ctx, typeRecall, session.ID,
		types.Put{
			Item:                      canonical,
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		},
		types.Put{Item: listing})
}

func (s *Store) GetRecallSession(ctx context.Context, sessionID string) (*entities.RecallSession, error) {
	return getItem[entities.RecallSession](ctx, s, lookupKey(typeRecall, sessionID), metadataSK, "recall session")
}

func statusFilter(status entities.SessionStatus) *expression.ConditionBuilder {
	if status == "" {
		return nil
	}
	cond := expression.Name("Status").Equal(expression.Value(string(status)))
	return &cond
}

func (s *Store) ListRecallSessions(ctx context.Context, filter ports.RecallSessionFilter) ([]*entities.RecallSession, error) {
	return queryUser[entities.RecallSession](ctx, s, filter.UserID, queryOptions{
		recordType: typeRecall,
		limit:      filter.Limit,
		filter:     statusFilter(filter.Status),
	})
}

func (s *Store) CountRecallSessions(ctx context.Context, userID string, status entities.SessionStatus) (int, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(userPK(userID))).
		And(expression.Key("SK").BeginsWith(typeRecall + "#"))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if f := statusFilter(status); f != nil {
		builder = builder.WithFilter(*f)
	}
	expr, err := builder.Build()
	if err != nil {
		return 0, fmt.Errorf("failed to build expression: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Select:                    types.SelectCount,
	})
	count := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, dbError("count recall sessions", err)
		}
		count += int(page.Count)
	}
	return count, nil
}
