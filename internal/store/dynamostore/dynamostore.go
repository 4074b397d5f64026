// Package dynamostore is the DynamoDB product store.
//
// Products live in one table keyed by id with two global secondary indexes:
//
//	gsi1  gsi1_pk = availability, gsi1_sk = creation sort key
//	gsi2  gsi2_pk = barcode
//
// A second table holds one guard item per barcode ({barcode, ownerId}).
// Product writes and guard writes go through TransactWriteItems, so two
// products can never hold the same barcode.
package dynamostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Index names.
const (
	IndexAvailability = "gsi1"
	IndexBarcode      = "gsi2"
)

// API is the subset of the DynamoDB client used by the store.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Store implements core.Store.
type Store struct {
	api          API
	table        string
	barcodeTable string
}

// New returns a store over the products table and the barcode guard table.
func New(api API, table, barcodeTable string) *Store {
	return &Store{api: api, table: table, barcodeTable: barcodeTable}
}

type barcodeGuard struct {
	Barcode string `dynamodbav:"barcode"`
	OwnerID string `dynamodbav:"ownerId"`
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

func barcodeKey(barcode string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"barcode": &types.AttributeValueMemberS{Value: barcode}}
}

// Get returns the product with id.
func (s *Store) Get(ctx context.Context, id string) (*core.Product, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, core.ErrRecordNotFound
	}
	return unmarshalProduct(out.Item)
}

// ConditionalPut writes p and its barcode guard in one transaction.
func (s *Store) ConditionalPut(ctx context.Context, p *core.Product, cond core.PutCondition) error {
	var previous *core.Product
	if cond == core.MustExist {
		current, err := s.Get(ctx, p.ID)
		if errors.Is(err, core.ErrRecordNotFound) {
			return core.ErrConditionFailed
		}
		if err != nil {
			return err
		}
		previous = current
	}

	in, err := s.putTransaction(p, cond, previous)
	if err != nil {
		return err
	}

	_, err = s.api.TransactWriteItems(ctx, in)
	return classifyTransactionError(err)
}

// putTransaction builds the writes for p. Item order matters:
// classifyTransactionError maps cancellation reasons by position.
//
//	0  product put, conditioned on existence
//	1  guard put for p.Barcode, conditioned on ownership
//	2  guard delete for the previous barcode, when it changed
func (s *Store) putTransaction(p *core.Product, cond core.PutCondition, previous *core.Product) (*dynamodb.TransactWriteItemsInput, error) {
	item, err := marshalProduct(p)
	if err != nil {
		return nil, err
	}
	guard, err := attributevalue.MarshalMap(barcodeGuard{Barcode: p.Barcode, OwnerID: p.ID})
	if err != nil {
		return nil, fmt.Errorf("marshal barcode guard: %w", err)
	}

	productCond := "attribute_not_exists(id)"
	if cond == core.MustExist {
		productCond = "attribute_exists(id)"
	}
	owner := map[string]types.AttributeValue{":id": &types.AttributeValueMemberS{Value: p.ID}}

	items := []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:           aws.String(s.table),
			Item:                item,
			ConditionExpression: aws.String(productCond),
		}},
		{Put: &types.Put{
			TableName:                 aws.String(s.barcodeTable),
			Item:                      guard,
			ConditionExpression:       aws.String("attribute_not_exists(barcode) OR ownerId = :id"),
			ExpressionAttributeValues: owner,
		}},
	}

	if previous != nil && previous.Barcode != p.Barcode {
		items = append(items, types.TransactWriteItem{Delete: &types.Delete{
			TableName:                 aws.String(s.barcodeTable),
			Key:                       barcodeKey(previous.Barcode),
			ConditionExpression:       aws.String("ownerId = :id"),
			ExpressionAttributeValues: owner,
		}})
	}

	return &dynamodb.TransactWriteItemsInput{TransactItems: items}, nil
}

// classifyTransactionError maps a cancelled transaction onto store
// condition errors using the position of the failed check.
func classifyTransactionError(err error) error {
	if err == nil {
		return nil
	}

	var cancelled *types.TransactionCanceledException
	if !errors.As(err, &cancelled) {
		return fmt.Errorf("write product: %w", err)
	}

	for i, reason := range cancelled.CancellationReasons {
		if aws.ToString(reason.Code) != "ConditionalCheckFailed" {
			continue
		}
		if i == 1 {
			return core.ErrBarcodeTaken
		}
		return core.ErrConditionFailed
	}
	return fmt.Errorf("write product: %w", err)
}

// Delete removes the product with id and releases its barcode.
func (s *Store) Delete(ctx context.Context, id string) error {
	current, err := s.Get(ctx, id)
	if errors.Is(err, core.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName: aws.String(s.table),
				Key:       idKey(id),
			}},
			{Delete: &types.Delete{
				TableName:           aws.String(s.barcodeTable),
				Key:                 barcodeKey(current.Barcode),
				ConditionExpression: aws.String("ownerId = :id"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":id": &types.AttributeValueMemberS{Value: id},
				},
			}},
		},
	})
	if err == nil {
		return nil
	}

	// The guard belongs to someone else; delete the product on its own.
	if errors.Is(classifyTransactionError(err), core.ErrBarcodeTaken) {
		_, err = s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.table),
			Key:       idKey(id),
		})
	}
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}

// QueryByBarcode returns products with barcode from the barcode index.
func (s *Store) QueryByBarcode(ctx context.Context, barcode string) ([]core.Product, error) {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(IndexBarcode),
		KeyConditionExpression: aws.String("gsi2_pk = :b"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":b": &types.AttributeValueMemberS{Value: barcode},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query barcode index: %w", err)
	}
	return unmarshalProducts(out.Items)
}

// QueryByIndex lists products with one availability ordered by creation time.
func (s *Store) QueryByIndex(ctx context.Context, q core.IndexQuery) (core.Page, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(IndexAvailability),
		KeyConditionExpression: aws.String("gsi1_pk = :a"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":a": &types.AttributeValueMemberS{Value: q.Availability},
		},
		ScanIndexForward: aws.Bool(!q.Descending),
		Limit:            aws.Int32(int32(pageLimit(q.Limit))),
	}

	if q.PageToken != "" {
		start, err := decodeKey(q.PageToken, "id", "gsi1_pk", "gsi1_sk")
		if err != nil {
			return core.Page{}, err
		}
		if pk := start["gsi1_pk"].(*types.AttributeValueMemberS); pk.Value != q.Availability {
			return core.Page{}, core.ErrInvalidPageToken
		}
		in.ExclusiveStartKey = start
	}

	out, err := s.api.Query(ctx, in)
	if err != nil {
		return core.Page{}, fmt.Errorf("query availability index: %w", err)
	}
	return page(out.Items, out.LastEvaluatedKey)
}

// Scan lists all products in table order.
func (s *Store) Scan(ctx context.Context, limit int, pageToken string) (core.Page, error) {
	in := &dynamodb.ScanInput{
		TableName: aws.String(s.table),
		Limit:     aws.Int32(int32(pageLimit(limit))),
	}

	if pageToken != "" {
		start, err := decodeKey(pageToken, "id")
		if err != nil {
			return core.Page{}, err
		}
		in.ExclusiveStartKey = start
	}

	out, err := s.api.Scan(ctx, in)
	if err != nil {
		return core.Page{}, fmt.Errorf("scan products: %w", err)
	}
	return page(out.Items, out.LastEvaluatedKey)
}

func page(items []map[string]types.AttributeValue, lastKey map[string]types.AttributeValue) (core.Page, error) {
	products, err := unmarshalProducts(items)
	if err != nil {
		return core.Page{}, err
	}

	result := core.Page{Items: products}
	if len(lastKey) > 0 {
		token, err := encodeKey(lastKey)
		if err != nil {
			return core.Page{}, err
		}
		result.NextToken = token
	}
	return result, nil
}

func pageLimit(n int) int {
	if n <= 0 || n > core.MaxPageSize {
		return core.MaxPageSize
	}
	return n
}
