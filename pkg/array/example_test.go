package array_test

import (
	"fmt"

	"github.com/ajitpratap0/strata/pkg/array"
	"github.com/ajitpratap0/strata/pkg/schema"
)

func ExampleArray_AppendInt() {
	a, err := array.New(schema.TypeInt32)
	if err != nil {
		panic(err)
	}
	defer a.Release()

	_ = a.StartAppending()
	_ = a.AppendInt(1)
	_ = a.AppendNull(1)
	_ = a.AppendInt(3)
	if err := a.FinishBuilding(array.ValidationFull); err != nil {
		panic(err)
	}

	var v array.View
	_ = v.InitFromType(schema.TypeInt32)
	if err := v.SetArray(a); err != nil {
		panic(err)
	}
	for i := int64(0); i < v.Length; i++ {
		if v.IsNull(i) {
			fmt.Println("null")
			continue
		}
		fmt.Println(v.IntUnsafe(i))
	}
	// Output:
	// 1
	// null
	// 3
}

func ExampleArray_FinishElement() {
	s := &schema.Schema{}
	s.Init()
	defer s.Release()
	_ = s.SetType(schema.TypeList)
	_ = s.Children[0].SetType(schema.TypeString)

	a, err := array.NewFromSchema(s)
	if err != nil {
		panic(err)
	}
	defer a.Release()

	_ = a.StartAppending()
	_ = a.Children[0].AppendString("a")
	_ = a.Children[0].AppendString("b")
	_ = a.FinishElement()
	_ = a.Children[0].AppendString("c")
	_ = a.FinishElement()
	if err := a.FinishBuildingDefault(); err != nil {
		panic(err)
	}

	v, err := array.NewViewFromSchema(s)
	if err != nil {
		panic(err)
	}
	if err := v.SetArray(a); err != nil {
		panic(err)
	}
	for i := int64(0); i < v.Length; i++ {
		start, end := v.ListChildOffset(i), v.ListChildOffset(i+1)
		var items []string
		for j := start; j < end; j++ {
			items = append(items, v.Children[0].StringUnsafe(j))
		}
		fmt.Println(items)
	}
	// Output:
	// [a b]
	// [c]
}

func ExampleDecimal_String() {
	d, err := array.NewDecimal(128, 10, 2)
	if err != nil {
		panic(err)
	}
	_ = d.SetString("-3.5")
	fmt.Println(d, d.Digits())
	// Output: -3.50 -350
}
