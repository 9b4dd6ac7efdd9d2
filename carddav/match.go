package carddav

import (
	"fmt"
	"strings"

	"github.com/emersion/go-vcard"
)

// Filter returns the filtered list of address objects matching the provided query.
// A nil query will return the full list of address objects.
func Filter(query *AddressBookQuery, aos []AddressObject) ([]AddressObject, error) {
	if query == nil {
		// FIXME: should we always return a copy of the provided slice?
		return aos, nil
	}

	n := query.Limit
	if n <= 0 {
		n = len(aos)
	}
	out := make([]AddressObject, 0, n)
	for _, ao := range aos {
		ok, err := Match(query, ao)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, ao)
		if len(out) >= n {
			break
		}
	}
	return out, nil
}

// Match reports whether the provided AddressObject matches the query.
func Match(query *AddressBookQuery, ao AddressObject) (matched bool, err error) {
	if query == nil {
		return true, nil
	}

	if query.DataRequest.AllProp {
		for _, name := range query.DataRequest.Props {
			field := ao.Card.Get(name)
			if field == nil {
				// missing required property.
				return false, fmt.Errorf("missing property %q", name)
			}
		}
	}

	switch query.FilterTest {
	default:
		return false, fmt.Errorf("unknown query filter test %q", query.FilterTest)

	case FilterAnyOf, "":
		for _, prop := range query.PropFilters {
			ok, err := matchPropFilter(prop, ao)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case FilterAllOf:
		for _, prop := range query.PropFilters {
			ok, err := matchPropFilter(prop, ao)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
}

func matchPropFilter(prop PropFilter, ao AddressObject) (bool, error) {
	fields := ao.Card[prop.Name]
	if prop.IsNotDefined {
		return len(fields) == 0, nil
	}
	if len(fields) == 0 {
		return false, nil
	}

	for _, field := range fields {
		ok, err := matchFieldFilter(prop, field)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func matchFieldFilter(prop PropFilter, field *vcard.Field) (bool, error) {
	if len(prop.TextMatches) == 0 && len(prop.Params) == 0 {
		return true, nil
	}

	var conds []func() (bool, error)
	for _, txt := range prop.TextMatches {
		conds = append(conds, func() (bool, error) { return matchTextMatch(txt, field.Value) })
	}
	for _, param := range prop.Params {
		conds = append(conds, func() (bool, error) { return matchParamFilter(param, field) })
	}

	switch prop.Test {
	default:
		return false, fmt.Errorf("unknown property filter test %q", prop.Test)

	case FilterAnyOf, "":
		for _, cond := range conds {
			ok, err := cond()
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case FilterAllOf:
		for _, cond := range conds {
			ok, err := cond()
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
}

func matchParamFilter(param ParamFilter, field *vcard.Field) (bool, error) {
	values := field.Params[strings.ToUpper(param.Name)]
	if param.IsNotDefined {
		return len(values) == 0, nil
	}
	if len(values) == 0 {
		return false, nil
	}
	if param.TextMatch == nil {
		return true, nil
	}
	for _, v := range values {
		ok, err := matchTextMatch(*param.TextMatch, v)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func matchTextMatch(txt TextMatch, value string) (bool, error) {
	var ok bool
	switch txt.MatchType {
	default:
		return false, fmt.Errorf("unknown textmatch type %q", txt.MatchType)

	case MatchEquals:
		ok = strings.EqualFold(txt.Text, value)

	case MatchContains, "":
		ok = strings.Contains(strings.ToLower(value), strings.ToLower(txt.Text))

	case MatchStartsWith:
		ok = strings.HasPrefix(strings.ToLower(value), strings.ToLower(txt.Text))

	case MatchEndsWith:
		ok = strings.HasSuffix(strings.ToLower(value), strings.ToLower(txt.Text))
	}

	if txt.NegateCondition {
		ok = !ok
	}
	return ok, nil
}
