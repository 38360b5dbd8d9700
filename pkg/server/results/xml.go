package results

import "encoding/xml"

// xmlResult mirrors the teacher's SPARQL XML results shape, trimmed to
// this store's untyped bindings.
type xmlResult struct {
	XMLName xml.Name    `xml:"results"`
	Head    xmlHead     `xml:"head"`
	Results []xmlResult1 `xml:"result"`
}

type xmlHead struct {
	Vars []xmlVar `xml:"variable"`
}

type xmlVar struct {
	Name string `xml:"name,attr"`
}

type xmlResult1 struct {
	Bindings []xmlBinding `xml:"binding"`
}

type xmlBinding struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// FormatXML renders r as a <results> document with one <variable> per
// var and one <result> per binding.
func FormatXML(r Result) ([]byte, error) {
	out := xmlResult{Head: xmlHead{}}
	for _, name := range r.Vars {
		out.Head.Vars = append(out.Head.Vars, xmlVar{Name: name})
	}
	for _, b := range r.Bindings {
		var res xmlResult1
		for _, name := range r.Vars {
			v, ok := b[name]
			if !ok || v == nil {
				continue
			}
			res.Bindings = append(res.Bindings, xmlBinding{Name: name, Value: v.String()})
		}
		out.Results = append(out.Results, res)
	}
	return xml.MarshalIndent(out, "", "  ")
}
