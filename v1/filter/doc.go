// Package filter builds engine range and term filters from the flat filter
// maps accepted by the awadb client.
//
//	res, err := filter.NewBuilder(log).Build(state, map[string]any{
//		"mine_price": 10,   // price >= 10
//		"max_price":  100,  // price < 100
//		"color":      "red",
//	})
//
// Numeric bounds are encoded with the target field's own type, so a filter
// on an INT column always compares 4-byte values. String values on STRING
// and MULTI_STRING fields become union term filters.
package filter
