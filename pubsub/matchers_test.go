package pubsub

import "fmt"

func ExamplePrefix() {
	t := Prefix("command")
	fmt.Println(t.Match("command"))
	fmt.Println(t.Match("command/cast.kitchen"))
	fmt.Println(t.Match("commander"))
	// Output:
	// true
	// true
	// false
}

func ExampleExact() {
	t := Exact("config")
	fmt.Println(t.Match("config"))
	fmt.Println(t.Match("config/cast"))
	// Output:
	// true
	// false
}
