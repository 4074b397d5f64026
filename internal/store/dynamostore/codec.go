package dynamostore

import (
	"fmt"

	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/JonMunkholm/inventory/internal/store/pagetoken"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// marshalProduct encodes p with its index attributes filled in.
func marshalProduct(p *core.Product) (map[string]types.AttributeValue, error) {
	item := *p
	item.AvailabilityKey = p.Availability
	item.BarcodeKey = p.Barcode
	if item.CreatedKey == "" {
		item.CreatedKey = core.SortKey(p.CreatedAt)
	}
	if item.ImageKeys == nil {
		item.ImageKeys = []string{}
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("marshal product %s: %w", p.ID, err)
	}
	return av, nil
}

func unmarshalProduct(item map[string]types.AttributeValue) (*core.Product, error) {
	var p core.Product
	if err := attributevalue.UnmarshalMap(item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	if p.ImageKeys == nil {
		p.ImageKeys = []string{}
	}
	return &p, nil
}

func unmarshalProducts(items []map[string]types.AttributeValue) ([]core.Product, error) {
	out := make([]core.Product, 0, len(items))
	for _, item := range items {
		p, err := unmarshalProduct(item)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// encodeKey turns a LastEvaluatedKey into a page token. Every key
// attribute of the table and its indexes is a string.
func encodeKey(key map[string]types.AttributeValue) (string, error) {
	flat := make(map[string]string, len(key))
	for name, v := range key {
		s, ok := v.(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("encode page token: key attribute %s is %T", name, v)
		}
		flat[name] = s.Value
	}
	return pagetoken.Encode(flat)
}

// decodeKey reverses encodeKey. The token must carry exactly the named
// attributes.
func decodeKey(token string, names ...string) (map[string]types.AttributeValue, error) {
	var flat map[string]string
	if err := pagetoken.Decode(token, &flat); err != nil {
		return nil, err
	}
	if len(flat) != len(names) {
		return nil, core.ErrInvalidPageToken
	}

	key := make(map[string]types.AttributeValue, len(names))
	for _, name := range names {
		v, ok := flat[name]
		if !ok || v == "" {
			return nil, core.ErrInvalidPageToken
		}
		key[name] = &types.AttributeValueMemberS{Value: v}
	}
	return key, nil
}
