package array

import (
	"bytes"
	"math"
	"sort"

	"github.com/ajitpratap0/strata/pkg/schema"
	stringpool "github.com/ajitpratap0/strata/pkg/strings"
)

// Compare reports whether actual matches expected at the given level. When
// they differ, the second result describes the first difference found and
// the path to it, such as "root.children[1]: Expected length 3 but found
// length 4".
func Compare(actual, expected *View, level CompareLevel) (bool, string, error) {
	switch level {
	case CompareIdentical:
		msg := compareIdentical(actual, expected, "root")
		return msg == "", msg, nil
	case CompareEquivalent:
		msg := compareEquivalent(actual, expected, "root")
		return msg == "", msg, nil
	}
	return false, "", invalidArg("unknown compare level %d", int(level))
}

func compareIdentical(a, e *View, path string) string {
	if a.StorageType != e.StorageType {
		return stringpool.Sprintf("%s: Expected storage type %s but found %s", path, e.StorageType, a.StorageType)
	}
	if a.Length != e.Length {
		return stringpool.Sprintf("%s: Expected length %d but found length %d", path, e.Length, a.Length)
	}
	if a.Offset != e.Offset {
		return stringpool.Sprintf("%s: Expected offset %d but found offset %d", path, e.Offset, a.Offset)
	}
	if an, en := a.ComputeNullCount(), e.ComputeNullCount(); an != en {
		return stringpool.Sprintf("%s: Expected null count %d but found null count %d", path, en, an)
	}
	if a.NumBuffers() != e.NumBuffers() {
		return stringpool.Sprintf("%s: Expected %d buffers but found %d buffers", path, e.NumBuffers(), a.NumBuffers())
	}
	for i := 0; i < a.NumBuffers(); i++ {
		if !bytes.Equal(a.BufferView(i), e.BufferView(i)) {
			return stringpool.Sprintf("%s.buffers[%d]: Buffers are not identical", path, i)
		}
	}
	return compareNested(a, e, path, compareIdentical)
}

func compareNested(a, e *View, path string, cmp func(a, e *View, path string) string) string {
	if len(a.Children) != len(e.Children) {
		return stringpool.Sprintf("%s: Expected %d children but found %d children", path, len(e.Children), len(a.Children))
	}
	for i := range a.Children {
		if msg := cmp(a.Children[i], e.Children[i], stringpool.Sprintf("%s.children[%d]", path, i)); msg != "" {
			return msg
		}
	}
	switch {
	case a.Dictionary == nil && e.Dictionary == nil:
		return ""
	case a.Dictionary == nil:
		return stringpool.Sprintf("%s: Expected dictionary but found none", path)
	case e.Dictionary == nil:
		return stringpool.Sprintf("%s: Expected no dictionary but found one", path)
	}
	return cmp(a.Dictionary, e.Dictionary, path+".dictionary")
}

func compareEquivalent(a, e *View, path string) string {
	if a.StorageType != e.StorageType {
		return stringpool.Sprintf("%s: Expected storage type %s but found %s", path, e.StorageType, a.StorageType)
	}
	if a.Length != e.Length {
		return stringpool.Sprintf("%s: Expected length %d but found length %d", path, e.Length, a.Length)
	}
	if msg := compareShape(a, e, path); msg != "" {
		return msg
	}
	for i := int64(0); i < a.Length; i++ {
		if msg := equalValues(a, i, e, i, path); msg != "" {
			return msg
		}
	}
	return ""
}

// compareShape checks that a and e have the same storage types, child counts
// and dictionary presence at every level, so that equalValues can descend
// into both trees in step.
func compareShape(a, e *View, path string) string {
	if a.StorageType != e.StorageType {
		return stringpool.Sprintf("%s: Expected storage type %s but found %s", path, e.StorageType, a.StorageType)
	}
	return compareNested(a, e, path, compareShape)
}

// equalValues compares element i of a with element j of e. Both indices are
// relative to the view offsets.
func equalValues(a *View, i int64, e *View, j int64, path string) string {
	if an, en := a.IsNull(i), e.IsNull(j); an != en {
		return stringpool.Sprintf("%s[%d]: Expected null=%t but found null=%t", path, i, en, an)
	} else if an {
		return ""
	}

	if a.Dictionary != nil {
		return equalValues(a.Dictionary, a.IntUnsafe(i), e.Dictionary, e.IntUnsafe(j), path+".dictionary")
	}

	switch t := a.StorageType; {
	case t == schema.TypeDouble || t == schema.TypeFloat || t == schema.TypeHalfFloat:
		av, ev := a.DoubleUnsafe(i), e.DoubleUnsafe(j)
		if av != ev && !(math.IsNaN(av) && math.IsNaN(ev)) {
			return stringpool.Sprintf("%s[%d]: Expected %v but found %v", path, i, ev, av)
		}

	case t == schema.TypeUint64:
		if av, ev := a.UintUnsafe(i), e.UintUnsafe(j); av != ev {
			return stringpool.Sprintf("%s[%d]: Expected %d but found %d", path, i, ev, av)
		}

	case t.IsInteger() || t == schema.TypeBool:
		if av, ev := a.IntUnsafe(i), e.IntUnsafe(j); av != ev {
			return stringpool.Sprintf("%s[%d]: Expected %d but found %d", path, i, ev, av)
		}

	case t == schema.TypeString || t == schema.TypeBinary || t == schema.TypeLargeString ||
		t == schema.TypeLargeBinary || t == schema.TypeFixedSizeBinary || isBinaryView(t):
		if av, ev := a.BytesUnsafe(i), e.BytesUnsafe(j); !bytes.Equal(av, ev) {
			return stringpool.Sprintf("%s[%d]: Expected %q but found %q", path, i, ev, av)
		}

	case t.IsDecimal():
		var ad, ed Decimal
		a.DecimalUnsafe(i, &ad)
		e.DecimalUnsafe(j, &ed)
		if !bytes.Equal(ad.Bytes(), ed.Bytes()) {
			return stringpool.Sprintf("%s[%d]: Expected %s but found %s", path, i, ed.Digits(), ad.Digits())
		}

	case t == schema.TypeIntervalMonths || t == schema.TypeIntervalDayTime || t == schema.TypeIntervalMonthDayNano:
		if av, ev := a.IntervalUnsafe(i), e.IntervalUnsafe(j); av != ev {
			return stringpool.Sprintf("%s[%d]: Expected %+v but found %+v", path, i, ev, av)
		}

	case t == schema.TypeStruct:
		for k := range a.Children {
			ac, ec := a.Children[k], e.Children[k]
			msg := equalValues(ac, a.Offset+i, ec, e.Offset+j,
				stringpool.Sprintf("%s.children[%d]", path, k))
			if msg != "" {
				return msg
			}
		}

	case t == schema.TypeList || t == schema.TypeMap || t == schema.TypeLargeList ||
		t == schema.TypeFixedSizeList || t == schema.TypeListView || t == schema.TypeLargeListView:
		return equalLists(a, i, e, j, path)

	case t.IsUnion():
		if aid, eid := a.UnionTypeID(i), e.UnionTypeID(j); aid != eid {
			return stringpool.Sprintf("%s[%d]: Expected union type id %d but found %d", path, i, eid, aid)
		}
		ak, ek := a.UnionChildIndex(i), e.UnionChildIndex(j)
		ac, ec := a.Children[ak], e.Children[ek]
		return equalValues(ac, a.UnionChildOffset(i), ec, e.UnionChildOffset(j),
			stringpool.Sprintf("%s.children[%d]", path, ak))

	case t == schema.TypeRunEndEncoded:
		ar, er := a.runIndex(i), e.runIndex(j)
		av, ev := a.Children[1], e.Children[1]
		return equalValues(av, ar, ev, er, path+".values")

	}
	return ""
}

func listBounds(v *View, i int64) (start, length int64) {
	switch v.StorageType {
	case schema.TypeListView, schema.TypeLargeListView:
		return v.listViewAt(v.Offset + i)
	case schema.TypeFixedSizeList:
		return (v.Offset + i) * v.Layout.ChildSizeElements, v.Layout.ChildSizeElements
	}
	start = v.ListChildOffset(i)
	return start, v.ListChildOffset(i+1) - start
}

func equalLists(a *View, i int64, e *View, j int64, path string) string {
	as, al := listBounds(a, i)
	es, el := listBounds(e, j)
	if al != el {
		return stringpool.Sprintf("%s[%d]: Expected list of length %d but found length %d", path, i, el, al)
	}
	ac, ec := a.Children[0], e.Children[0]
	childPath := path + ".children[0]"
	for k := int64(0); k < al; k++ {
		if msg := equalValues(ac, as+k, ec, es+k, childPath); msg != "" {
			return msg
		}
	}
	return ""
}

// runIndex returns the index into the values child of the run holding
// element i of a run-end encoded view.
func (v *View) runIndex(i int64) int64 {
	runEnds := v.Children[0]
	logical := v.Offset + i
	n := int(runEnds.Length)
	k := sort.Search(n, func(k int) bool {
		return runEnds.IntUnsafe(int64(k)) > logical
	})
	return int64(k)
}
