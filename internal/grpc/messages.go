package grpc

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"arithmetic-calculator/internal/db"
	"arithmetic-calculator/internal/evaluator"
	"arithmetic-calculator/internal/settlement"
)

// Поля сообщений
const (
	fieldType       = "type"
	fieldFirst      = "first_term"
	fieldSecond     = "second_term"
	fieldLimit      = "limit"
	fieldOffset     = "offset"
	fieldTerm       = "term"
	fieldID         = "id"
	fieldRecords    = "records"
	fieldTotalCount = "total_count"
)

// Числа в Struct - float64; целые вне этого диапазона передаются строкой
const maxExactFloat = 1 << 53

// optionalInt читает необязательное целое поле: число или десятичную строку
func optionalInt(s *structpb.Struct, key string) (*int64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil, nil
	}

	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_NumberValue:
		f := kind.NumberValue
		if f != math.Trunc(f) || math.Abs(f) > maxExactFloat {
			return nil, fmt.Errorf("%w: %s must be an integer", evaluator.ErrInvalidOperands, key)
		}
		n := int64(f)
		return &n, nil
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(kind.StringValue, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer", evaluator.ErrInvalidOperands, key)
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an integer", evaluator.ErrInvalidOperands, key)
	}
}

func intField(s *structpb.Struct, key string) (int64, error) {
	n, err := optionalInt(s, key)
	if err != nil || n == nil {
		return 0, err
	}
	return *n, nil
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func encodeInt(n *int64) any {
	if n == nil {
		return nil
	}
	if *n > maxExactFloat || *n < -maxExactFloat {
		return strconv.FormatInt(*n, 10)
	}
	return *n
}

func pageFromStruct(s *structpb.Struct) (db.Page, error) {
	limit, err := intField(s, fieldLimit)
	if err != nil {
		return db.Page{}, fmt.Errorf("%w: %s", db.ErrInvalidPage, fieldLimit)
	}
	offset, err := intField(s, fieldOffset)
	if err != nil {
		return db.Page{}, fmt.Errorf("%w: %s", db.ErrInvalidPage, fieldOffset)
	}
	return db.Page{Limit: int(limit), Offset: int(offset)}, nil
}

func settleRequest(kind evaluator.Kind, first, second *int64) (*structpb.Struct, error) {
	fields := map[string]any{fieldType: kind.String()}
	if first != nil {
		fields[fieldFirst] = encodeInt(first)
	}
	if second != nil {
		fields[fieldSecond] = encodeInt(second)
	}
	return structpb.NewStruct(fields)
}

func pageRequest(page db.Page, extra map[string]any) (*structpb.Struct, error) {
	fields := map[string]any{fieldLimit: page.Limit, fieldOffset: page.Offset}
	for k, v := range extra {
		fields[k] = v
	}
	return structpb.NewStruct(fields)
}

func outcomeToStruct(out *settlement.Outcome) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"result":         out.Result,
		"operation_text": out.Expression,
		"amount":         out.Amount,
		"user_balance":   out.Balance,
		"record_id":      out.RecordID,
	})
}

func outcomeFromStruct(s *structpb.Struct) (*settlement.Outcome, error) {
	amount, err := intField(s, "amount")
	if err != nil {
		return nil, err
	}
	balance, err := intField(s, "user_balance")
	if err != nil {
		return nil, err
	}
	recordID, err := intField(s, "record_id")
	if err != nil {
		return nil, err
	}
	return &settlement.Outcome{
		Result:     stringField(s, "result"),
		Expression: stringField(s, "operation_text"),
		Amount:     amount,
		Balance:    balance,
		RecordID:   recordID,
	}, nil
}

func recordToMap(rec *db.Record) map[string]any {
	return map[string]any{
		"id":                 rec.ID,
		"user_id":            rec.UserID,
		"operation_id":       rec.OperationID,
		"operation":          rec.Kind.String(),
		"amount":             rec.Amount,
		"user_balance":       rec.UserBalance,
		"operation_text":     rec.Expression,
		"operation_response": rec.Response,
		"date":               rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func recordsToStruct(records []*db.Record, total int) (*structpb.Struct, error) {
	list := make([]any, 0, len(records))
	for _, rec := range records {
		list = append(list, recordToMap(rec))
	}
	return structpb.NewStruct(map[string]any{
		fieldRecords:    list,
		fieldTotalCount: total,
	})
}

func recordsFromStruct(s *structpb.Struct) ([]*db.Record, int, error) {
	total, err := intField(s, fieldTotalCount)
	if err != nil {
		return nil, 0, err
	}

	values := s.GetFields()[fieldRecords].GetListValue().GetValues()
	records := make([]*db.Record, 0, len(values))
	for _, v := range values {
		r := v.GetStructValue()
		if r == nil {
			return nil, 0, fmt.Errorf("malformed record in response")
		}

		var ints [5]int64
		for i, key := range []string{"id", "user_id", "operation_id", "amount", "user_balance"} {
			if ints[i], err = intField(r, key); err != nil {
				return nil, 0, err
			}
		}
		created, err := time.Parse(time.RFC3339Nano, stringField(r, "date"))
		if err != nil {
			return nil, 0, fmt.Errorf("malformed record date: %w", err)
		}

		records = append(records, &db.Record{
			ID:          ints[0],
			UserID:      ints[1],
			OperationID: ints[2],
			Kind:        evaluator.Kind(stringField(r, "operation")),
			Amount:      ints[3],
			UserBalance: ints[4],
			Expression:  stringField(r, "operation_text"),
			Response:    stringField(r, "operation_response"),
			CreatedAt:   created,
		})
	}
	return records, int(total), nil
}
