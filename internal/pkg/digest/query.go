package digest

import "net/url"

// EncodeQuery renders params as a query string with keys sorted
// lexicographically. The order is unrelated to any digest field order.
func EncodeQuery(params Params) string {
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}

// DecodeQuery parses a query string produced by EncodeQuery.
func DecodeQuery(query string) (Params, error) {
	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	return FromValues(values), nil
}

// FromValues keeps the first value of every key.
func FromValues(values url.Values) Params {
	params := make(Params, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return params
}
