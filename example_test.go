package tomllib_test

import (
	"fmt"

	"github.com/joelself/tomllib"
)

func ExampleParse() {
	doc, res := tomllib.Parse([]byte(`name = "Alice"` + "\n"))
	fmt.Println(res.State)
	fmt.Println(doc.GetValue("name"))
	// Output:
	// Full
	// "Alice"
}

func ExampleParse_tolerant() {
	doc, res := tomllib.Parse([]byte("good = 1\nbad =\n"))
	fmt.Println(res.State)
	fmt.Printf("%q\n", res.Remainder)
	fmt.Println(doc.GetValue("good"))
	// Output:
	// Partial
	// "bad =\n"
	// 1
}

func ExampleDocument_String() {
	input := "# Config\ntitle = \"My App\"\n"
	doc, _ := tomllib.Parse([]byte(input))
	fmt.Print(doc.String())
	// Output:
	// # Config
	// title = "My App"
}

func ExampleDocument_GetValue() {
	doc, _ := tomllib.Parse([]byte("[server]\nhost = \"localhost\"\nport = 8080\n"))
	fmt.Println(doc.GetValue("server.host"))
	fmt.Println(doc.GetValue("server.missing") == nil)
	// Output:
	// "localhost"
	// true
}

func ExampleDocument_SetValue() {
	doc, _ := tomllib.Parse([]byte("port = 80 # http\n"))
	doc.SetValue("port", tomllib.NewInteger(8080))
	fmt.Print(doc.String())
	// Output:
	// port = 8080 # http
}

func ExampleDocument_GetChildren() {
	doc, _ := tomllib.Parse([]byte("[server]\nhost = \"localhost\"\nport = 8080\n"))
	kids := doc.GetChildren("server")
	fmt.Println(kids)
	fmt.Println(kids.ChildKeys("server"))
	// Output:
	// [host port]
	// [server.host server.port]
}

func ExampleDocument_Walk() {
	doc, _ := tomllib.Parse([]byte("# comment\nkey = 1\n"))
	comments := 0
	doc.Walk(func(n tomllib.Node) bool {
		if n.Type() == tomllib.NodeComment {
			comments++
		}
		return true
	})
	fmt.Println(comments)
	// Output:
	// 1
}

func ExampleDocument_Delete() {
	doc, _ := tomllib.Parse([]byte("a = 1\nb = 2\nc = 3\n"))
	doc.Delete("b")
	fmt.Print(doc.String())
	// Output:
	// a = 1
	// c = 3
}

func ExampleDocument_DeleteTable() {
	doc, _ := tomllib.Parse([]byte("[keep]\nx = 1\n[remove]\ny = 2\n"))
	doc.DeleteTable("remove")
	fmt.Print(doc.String())
	// Output:
	// [keep]
	// x = 1
}

func ExampleDocument_Append() {
	doc, _ := tomllib.Parse([]byte("a = 1\n"))
	kv, _ := tomllib.NewKeyValue("b", tomllib.NewInteger(2))
	doc.Append(kv)
	fmt.Print(doc.String())
	// Output:
	// a = 1
	// b = 2
}

func ExampleDocument_InsertAt() {
	doc, _ := tomllib.Parse([]byte("a = 1\nc = 3\n"))
	kv, _ := tomllib.NewKeyValue("b", tomllib.NewInteger(2))
	doc.InsertAt(1, kv)
	fmt.Print(doc.String())
	// Output:
	// a = 1
	// b = 2
	// c = 3
}

func ExampleTableNode_Get() {
	doc, _ := tomllib.Parse([]byte("[server]\nhost = \"localhost\"\nport = 8080\n"))
	tbl := doc.Table("server")
	kv := tbl.Get("port")
	fmt.Println(kv.Val.Text())
	// Output:
	// 8080
}

func ExampleTableNode_Append() {
	doc, _ := tomllib.Parse([]byte("[server]\nhost = \"localhost\"\n"))
	tbl := doc.Table("server")
	kv, _ := tomllib.NewKeyValue("port", tomllib.NewInteger(8080))
	tbl.Append(kv)
	fmt.Print(doc.String())
	// Output:
	// [server]
	// host = "localhost"
	// port = 8080
}

func ExampleStringNode_Value() {
	doc, _ := tomllib.Parse([]byte(`greeting = "hello\nworld"` + "\n"))
	s := doc.Get("greeting").(*tomllib.StringNode)
	fmt.Println(s.Value())
	// Output:
	// hello
	// world
}

func ExampleNumberNode_Int() {
	doc, _ := tomllib.Parse([]byte("count = 1_000\n"))
	n := doc.Get("count").(*tomllib.NumberNode)
	v, _ := n.Int()
	fmt.Println(v)
	// Output:
	// 1000
}

func ExampleNewKeyValue() {
	name, _ := tomllib.NewBasicString("Alice")
	kv, _ := tomllib.NewKeyValue("name", name)
	doc := tomllib.NewDocument()
	doc.Append(kv)
	fmt.Print(doc.String())
	// Output:
	// name = "Alice"
}

func ExampleNewTable() {
	tbl, _ := tomllib.NewTable("server")
	host, _ := tomllib.NewBasicString("localhost")
	kv, _ := tomllib.NewKeyValue("host", host)
	tbl.Append(kv)
	doc := tomllib.NewDocument()
	doc.Append(tbl)
	fmt.Print(doc.String())
	// Output:
	// [server]
	// host = "localhost"
}

func ExampleNewBasicString() {
	s, _ := tomllib.NewBasicString("hello world")
	fmt.Println(s.String())
	// Output:
	// "hello world"
}
