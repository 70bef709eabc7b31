package tomllib

import (
	"math"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestRoundTripFidelity(t *testing.T) {
	convey.Convey("byte-for-byte round trip", t, func() {
		src := `# deploy manifest
title = "demo"   # inline note

[servers.alpha]
ip   = "10.0.0.1"
dc = "eqdc10"
`
		doc, res := Parse([]byte(src))
		convey.So(res.State, convey.ShouldEqual, Full)
		convey.So(doc.String(), convey.ShouldEqual, src)
	})
}

func TestArrayOfTablesFeature(t *testing.T) {
	convey.Convey("array of tables", t, func() {
		src := `
[[products]]
name = "Hammer"
sku = 738594937

[[products]]
name = "Nails"
sku = 284758393
count = 100
`
		doc, res := Parse([]byte(src))
		convey.So(res.State, convey.ShouldEqual, Full)
		kids := doc.GetChildren("products")
		convey.So(kids.ChildKeys("products"), convey.ShouldResemble, []string{"products[0]", "products[1]"})
		convey.So(doc.GetValue("products[0].name").String(), convey.ShouldEqual, `"Hammer"`)
		name := doc.Get("products[1].name").(*StringNode)
		convey.So(name.Value(), convey.ShouldEqual, "Nails")
		convey.So(doc.String(), convey.ShouldEqual, src)
	})
}

func TestInlineTableFeature(t *testing.T) {
	convey.Convey("inline table", t, func() {
		src := `owner = { name = "Tom", dob = 1979-05-27T07:32:00Z }`
		doc, res := Parse([]byte(src))
		convey.So(res.State, convey.ShouldEqual, Full)
		name := doc.Get("owner.name").(*StringNode)
		convey.So(name.Value(), convey.ShouldEqual, "Tom")
		dt, err := doc.Get("owner.dob").(*DateTimeNode).Value()
		convey.So(err, convey.ShouldBeNil)
		convey.So(dt.String(), convey.ShouldEqual, "1979-05-27T07:32:00Z")
		convey.So(doc.String(), convey.ShouldEqual, src)
	})
}

func TestMultilineBasicStringFeature(t *testing.T) {
	convey.Convey("multiline basic string", t, func() {
		src := `desc = """first
second
third"""`
		doc, res := Parse([]byte(src))
		convey.So(res.State, convey.ShouldEqual, Full)
		n := doc.Get("desc").(*StringNode)
		convey.So(n.Value(), convey.ShouldEqual, "first\nsecond\nthird")
		convey.So(doc.String(), convey.ShouldEqual, src)
	})
}

func TestQuotedKeysFeature(t *testing.T) {
	convey.Convey("quoted keys", t, func() {
		src := "\"a.b\" = 1\na.c = 2\n"
		doc, res := Parse([]byte(src))
		convey.So(res.State, convey.ShouldEqual, Full)
		convey.So(doc.GetValue("\"a.b\"").String(), convey.ShouldEqual, "1")
		convey.So(doc.GetValue("a.c").String(), convey.ShouldEqual, "2")
		convey.So(doc.HasValue("a.b"), convey.ShouldBeFalse)
	})
}

func TestNumberBasesFeature(t *testing.T) {
	convey.Convey("floats and ints with underscores and bases", t, func() {
		src := `
f1 = +inf
f2 = -inf
f3 = nan
i1 = 1_000
hex = 0xDEADBEEF
oct = 0o755
bin = 0b1010
`
		doc, res := Parse([]byte(src))
		convey.So(res.State, convey.ShouldEqual, Full)
		f1, err := doc.Get("f1").(*NumberNode).Float()
		convey.So(err, convey.ShouldBeNil)
		convey.So(f1, convey.ShouldEqual, math.Inf(+1))
		f2, _ := doc.Get("f2").(*NumberNode).Float()
		convey.So(f2, convey.ShouldEqual, math.Inf(-1))
		f3, _ := doc.Get("f3").(*NumberNode).Float()
		convey.So(math.IsNaN(f3), convey.ShouldBeTrue)
		i1, _ := doc.Get("i1").(*NumberNode).Int()
		convey.So(i1, convey.ShouldEqual, 1000)
		hex, _ := doc.Get("hex").(*NumberNode).Int()
		convey.So(hex, convey.ShouldEqual, 0xDEADBEEF)
		oct, _ := doc.Get("oct").(*NumberNode).Int()
		convey.So(oct, convey.ShouldEqual, 0o755)
		bin, _ := doc.Get("bin").(*NumberNode).Int()
		convey.So(bin, convey.ShouldEqual, 10)
	})
}

func TestMultilineArrayFeature(t *testing.T) {
	convey.Convey("multiline array with trailing comma", t, func() {
		src := `
ports = [
  8001,
  8002,
]
`
		doc, res := Parse([]byte(src))
		convey.So(res.State, convey.ShouldEqual, Full)
		convey.So(doc.String(), convey.ShouldEqual, src)
		kids := doc.GetChildren("ports")
		convey.So(kids.ChildKeys("ports"), convey.ShouldResemble, []string{"ports[0]", "ports[1]"})
		v, err := doc.Get("ports[1]").(*NumberNode).Int()
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldEqual, 8002)
	})
}

func TestDottedKeysFeature(t *testing.T) {
	convey.Convey("dotted keys build implicit tables", t, func() {
		src := "fruit.name = \"banana\"\nfruit.color = \"yellow\"\n"
		doc, res := Parse([]byte(src))
		convey.So(res.State, convey.ShouldEqual, Full)
		convey.So(doc.GetValue("fruit.name").String(), convey.ShouldEqual, `"banana"`)
		kids := doc.GetChildren("fruit")
		convey.So(kids.ChildKeys("fruit"), convey.ShouldResemble, []string{"fruit.name", "fruit.color"})
		_, isTable := doc.GetValue("fruit").(Table)
		convey.So(isTable, convey.ShouldBeTrue)
	})
}

func TestTolerantParseFeature(t *testing.T) {
	convey.Convey("recoverable errors and a stall in one input", t, func() {
		src := `
host = "ok"

[service]
port = 8080
port = 9090
bad line here
`
		doc, res := Parse([]byte(src))
		convey.So(res.State, convey.ShouldEqual, PartialError)
		convey.So(res.Remainder, convey.ShouldEqual, "bad line here\n")
		convey.So(res.Line, convey.ShouldEqual, 7)
		convey.So(len(res.Errors), convey.ShouldEqual, 1)
		convey.So(res.Errors[0].Kind, convey.ShouldEqual, DuplicateKey)
		convey.So(doc.GetValue("service.port").String(), convey.ShouldEqual, "8080")
		convey.So(doc.String()+res.Remainder, convey.ShouldEqual, src)
	})
}

func TestEditPipelineFeature(t *testing.T) {
	convey.Convey("parse, edit, render", t, func() {
		src := "title = \"demo\"\n\n[server]\nhost = \"localhost\" # primary\nport = 8080\n"
		doc, res := Parse([]byte(src))
		convey.So(res.State, convey.ShouldEqual, Full)

		convey.So(doc.SetValue("server.port", NewInteger(9090)), convey.ShouldBeTrue)
		host, err := NewBasicString("0.0.0.0")
		convey.So(err, convey.ShouldBeNil)
		convey.So(doc.SetValue("server.host", host), convey.ShouldBeTrue)

		kv, err := NewKeyValue("tls", NewBoolean(true))
		convey.So(err, convey.ShouldBeNil)
		convey.So(doc.Table("server").Append(kv), convey.ShouldBeNil)

		convey.So(doc.Delete("title"), convey.ShouldBeTrue)

		want := "\n[server]\nhost = \"0.0.0.0\" # primary\nport = 9090\ntls = true\n"
		convey.So(doc.String(), convey.ShouldEqual, want)
	})
}
