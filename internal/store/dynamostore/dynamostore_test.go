package dynamostore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI records requests and returns canned responses.
type fakeAPI struct {
	items map[string]map[string]types.AttributeValue

	transactErr error
	transacts   []*dynamodb.TransactWriteItemsInput
	deletes     []*dynamodb.DeleteItemInput
	queries     []*dynamodb.QueryInput
	queryOut    *dynamodb.QueryOutput
	scans       []*dynamodb.ScanInput
	scanOut     *dynamodb.ScanOutput
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	id := in.Key["id"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[id]}, nil
}

func (f *fakeAPI) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deletes = append(f.deletes, in)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeAPI) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.transacts = append(f.transacts, in)
	if f.transactErr != nil {
		return nil, f.transactErr
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queries = append(f.queries, in)
	if f.queryOut == nil {
		return &dynamodb.QueryOutput{}, nil
	}
	return f.queryOut, nil
}

func (f *fakeAPI) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scans = append(f.scans, in)
	if f.scanOut == nil {
		return &dynamodb.ScanOutput{}, nil
	}
	return f.scanOut, nil
}

var created = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func testProduct(id, barcode string) *core.Product {
	return &core.Product{
		ID:           id,
		Name:         "Apple",
		Barcode:      barcode,
		Availability: core.InStock,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func mustMarshal(t *testing.T, p *core.Product) map[string]types.AttributeValue {
	t.Helper()
	item, err := marshalProduct(p)
	if err != nil {
		t.Fatalf("marshalProduct() error = %v", err)
	}
	return item
}

func cancelled(codes ...string) error {
	reasons := make([]types.CancellationReason, len(codes))
	for i, c := range codes {
		reasons[i] = types.CancellationReason{Code: aws.String(c)}
	}
	return &types.TransactionCanceledException{CancellationReasons: reasons}
}

// ============================================================================
// Codec
// ============================================================================

func TestMarshalProduct_IndexAttributes(t *testing.T) {
	item := mustMarshal(t, testProduct("p1", "111"))

	want := map[string]string{
		"id":      "p1",
		"gsi1_pk": core.InStock,
		"gsi1_sk": core.SortKey(created),
		"gsi2_pk": "111",
	}
	for name, v := range want {
		got, ok := item[name].(*types.AttributeValueMemberS)
		if !ok || got.Value != v {
			t.Errorf("item[%s] = %v, want %q", name, item[name], v)
		}
	}

	p, err := unmarshalProduct(item)
	if err != nil {
		t.Fatalf("unmarshalProduct() error = %v", err)
	}
	if p.ImageKeys == nil {
		t.Error("ImageKeys = nil, want empty slice")
	}
	if !p.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", p.CreatedAt, created)
	}
}

func TestKeyToken(t *testing.T) {
	key := map[string]types.AttributeValue{
		"id":      &types.AttributeValueMemberS{Value: "p1"},
		"gsi1_pk": &types.AttributeValueMemberS{Value: core.InStock},
		"gsi1_sk": &types.AttributeValueMemberS{Value: "2024"},
	}

	token, err := encodeKey(key)
	if err != nil {
		t.Fatalf("encodeKey() error = %v", err)
	}
	got, err := decodeKey(token, "id", "gsi1_pk", "gsi1_sk")
	if err != nil {
		t.Fatalf("decodeKey() error = %v", err)
	}
	if got["id"].(*types.AttributeValueMemberS).Value != "p1" {
		t.Errorf("decodeKey() id = %v, want p1", got["id"])
	}

	if _, err := decodeKey(token, "id"); !errors.Is(err, core.ErrInvalidPageToken) {
		t.Errorf("decodeKey(wrong shape) error = %v, want ErrInvalidPageToken", err)
	}
	if _, err := encodeKey(map[string]types.AttributeValue{"n": &types.AttributeValueMemberN{Value: "1"}}); err == nil {
		t.Error("encodeKey(number attribute) error = nil, want error")
	}
}

// ============================================================================
// Writes
// ============================================================================

func TestClassifyTransactionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"product condition", cancelled("ConditionalCheckFailed", "None"), core.ErrConditionFailed},
		{"barcode guard", cancelled("None", "ConditionalCheckFailed"), core.ErrBarcodeTaken},
		{"old guard", cancelled("None", "None", "ConditionalCheckFailed"), core.ErrConditionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyTransactionError(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("classifyTransactionError() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := classifyTransactionError(nil); got != nil {
		t.Errorf("classifyTransactionError(nil) = %v, want nil", got)
	}
	other := errors.New("throttled")
	if got := classifyTransactionError(other); !errors.Is(got, other) {
		t.Errorf("classifyTransactionError(other) = %v, want wrapped %v", got, other)
	}
}

func TestConditionalPut_Create(t *testing.T) {
	api := &fakeAPI{}
	s := New(api, "products", "barcodes")

	if err := s.ConditionalPut(context.Background(), testProduct("p1", "111"), core.MustNotExist); err != nil {
		t.Fatalf("ConditionalPut() error = %v", err)
	}

	items := api.transacts[0].TransactItems
	if len(items) != 2 {
		t.Fatalf("transaction has %d items, want 2", len(items))
	}
	if got := aws.ToString(items[0].Put.ConditionExpression); got != "attribute_not_exists(id)" {
		t.Errorf("product condition = %q", got)
	}
	if got := aws.ToString(items[1].Put.TableName); got != "barcodes" {
		t.Errorf("guard table = %q, want barcodes", got)
	}
}

func TestConditionalPut_BarcodeTaken(t *testing.T) {
	api := &fakeAPI{transactErr: cancelled("None", "ConditionalCheckFailed")}
	s := New(api, "products", "barcodes")

	err := s.ConditionalPut(context.Background(), testProduct("p1", "111"), core.MustNotExist)
	if !errors.Is(err, core.ErrBarcodeTaken) {
		t.Errorf("ConditionalPut() error = %v, want ErrBarcodeTaken", err)
	}
}

func TestConditionalPut_UpdateReleasesOldBarcode(t *testing.T) {
	api := &fakeAPI{items: map[string]map[string]types.AttributeValue{}}
	api.items["p1"] = mustMarshal(t, testProduct("p1", "111"))
	s := New(api, "products", "barcodes")

	if err := s.ConditionalPut(context.Background(), testProduct("p1", "222"), core.MustExist); err != nil {
		t.Fatalf("ConditionalPut() error = %v", err)
	}

	items := api.transacts[0].TransactItems
	if len(items) != 3 {
		t.Fatalf("transaction has %d items, want 3", len(items))
	}
	old := items[2].Delete.Key["barcode"].(*types.AttributeValueMemberS).Value
	if old != "111" {
		t.Errorf("released barcode = %q, want 111", old)
	}
}

func TestConditionalPut_UpdateMissing(t *testing.T) {
	api := &fakeAPI{}
	s := New(api, "products", "barcodes")

	err := s.ConditionalPut(context.Background(), testProduct("p1", "111"), core.MustExist)
	if !errors.Is(err, core.ErrConditionFailed) {
		t.Errorf("ConditionalPut() error = %v, want ErrConditionFailed", err)
	}
	if len(api.transacts) != 0 {
		t.Errorf("transactions = %d, want 0", len(api.transacts))
	}
}

func TestDelete(t *testing.T) {
	t.Run("missing is a no-op", func(t *testing.T) {
		api := &fakeAPI{}
		if err := New(api, "products", "barcodes").Delete(context.Background(), "nope"); err != nil {
			t.Errorf("Delete() error = %v", err)
		}
		if len(api.transacts) != 0 {
			t.Errorf("transactions = %d, want 0", len(api.transacts))
		}
	})

	t.Run("foreign guard falls back to plain delete", func(t *testing.T) {
		api := &fakeAPI{
			items:       map[string]map[string]types.AttributeValue{},
			transactErr: cancelled("None", "ConditionalCheckFailed"),
		}
		api.items["p1"] = mustMarshal(t, testProduct("p1", "111"))

		if err := New(api, "products", "barcodes").Delete(context.Background(), "p1"); err != nil {
			t.Errorf("Delete() error = %v", err)
		}
		if len(api.deletes) != 1 {
			t.Errorf("DeleteItem calls = %d, want 1", len(api.deletes))
		}
	})
}

// ============================================================================
// Queries
// ============================================================================

func TestQueryByIndex(t *testing.T) {
	last := map[string]types.AttributeValue{
		"id":      &types.AttributeValueMemberS{Value: "p1"},
		"gsi1_pk": &types.AttributeValueMemberS{Value: core.InStock},
		"gsi1_sk": &types.AttributeValueMemberS{Value: "2024"},
	}
	api := &fakeAPI{queryOut: &dynamodb.QueryOutput{
		Items:            []map[string]types.AttributeValue{mustMarshal(t, testProduct("p1", "111"))},
		LastEvaluatedKey: last,
	}}
	s := New(api, "products", "barcodes")
	ctx := context.Background()

	page, err := s.QueryByIndex(ctx, core.IndexQuery{Availability: core.InStock, Descending: true, Limit: 1})
	if err != nil {
		t.Fatalf("QueryByIndex() error = %v", err)
	}
	if len(page.Items) != 1 || page.NextToken == "" {
		t.Fatalf("page = %d items, token %q", len(page.Items), page.NextToken)
	}

	in := api.queries[0]
	if aws.ToString(in.IndexName) != IndexAvailability || aws.ToBool(in.ScanIndexForward) {
		t.Errorf("query index = %q forward = %v, want %s backward", aws.ToString(in.IndexName), aws.ToBool(in.ScanIndexForward), IndexAvailability)
	}

	if _, err := s.QueryByIndex(ctx, core.IndexQuery{Availability: core.InStock, PageToken: page.NextToken}); err != nil {
		t.Errorf("QueryByIndex(next) error = %v", err)
	}
	if api.queries[1].ExclusiveStartKey == nil {
		t.Error("ExclusiveStartKey not set from token")
	}

	_, err = s.QueryByIndex(ctx, core.IndexQuery{Availability: core.OutOfStock, PageToken: page.NextToken})
	if !errors.Is(err, core.ErrInvalidPageToken) {
		t.Errorf("QueryByIndex(other availability) error = %v, want ErrInvalidPageToken", err)
	}
}

func TestScan_LimitClamped(t *testing.T) {
	api := &fakeAPI{}
	s := New(api, "products", "barcodes")

	page, err := s.Scan(context.Background(), 0, "")
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if page.NextToken != "" {
		t.Errorf("NextToken = %q, want empty", page.NextToken)
	}
	if got := aws.ToInt32(api.scans[0].Limit); got != core.MaxPageSize {
		t.Errorf("Scan limit = %d, want %d", got, core.MaxPageSize)
	}

	if _, err := s.Scan(context.Background(), 10, "garbage!"); !errors.Is(err, core.ErrInvalidPageToken) {
		t.Errorf("Scan(bad token) error = %v, want ErrInvalidPageToken", err)
	}
}
