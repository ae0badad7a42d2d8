package ssis

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// element is a namespace-resolved markup node
type element struct {
	name     xml.Name
	attrs    []xml.Attr
	children []*element
	text     strings.Builder
}

// parse decodes markup into an element tree
func parse(src []byte) (*element, error) {
	decoder := xml.NewDecoder(bytes.NewReader(src))
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	var root *element
	var stack []*element
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch actual := token.(type) {
		case xml.StartElement:
			node := &element{name: actual.Name, attrs: actual.Attr}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			} else if root == nil {
				root = node
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(actual)
			}
		}
	}
	if root == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return root, nil
}

// attr returns an attribute by local name in any namespace
func (e *element) attr(local string) string {
	for _, candidate := range e.attrs {
		if strings.EqualFold(candidate.Name.Local, local) {
			return candidate.Value
		}
	}
	return ""
}

// property returns an attribute, or a Property child element named local
func (e *element) property(local string) string {
	if value := e.attr(local); value != "" {
		return value
	}
	for _, child := range e.children {
		if child.name.Local == "Property" && strings.EqualFold(child.attr("Name"), local) {
			return strings.TrimSpace(child.text.String())
		}
	}
	return ""
}

// child returns direct children with the local name
func (e *element) child(local string) []*element {
	var result []*element
	for _, candidate := range e.children {
		if candidate.name.Local == local {
			result = append(result, candidate)
		}
	}
	return result
}

// path follows direct children by local names
func (e *element) path(locals ...string) []*element {
	current := []*element{e}
	for _, local := range locals {
		var next []*element
		for _, node := range current {
			next = append(next, node.child(local)...)
		}
		current = next
	}
	return current
}

// find returns descendants with the local name, not descending below any
// element whose local name is in stop
func (e *element) find(local string, stop ...string) []*element {
	var result []*element
	var walk func(node *element)
	walk = func(node *element) {
		for _, child := range node.children {
			if child.name.Local == local {
				result = append(result, child)
			}
			if contains(stop, child.name.Local) {
				continue
			}
			walk(child)
		}
	}
	walk(e)
	return result
}

func contains(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
