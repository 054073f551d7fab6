package uiautomator2

import (
	"fmt"
)

// Element represents a UI element on the device.
type Element struct {
	id     string
	client *Client
}

// NewElement wraps a known element id.
func (c *Client) NewElement(id string) *Element {
	return &Element{id: id, client: c}
}

// ID returns the element ID.
func (e *Element) ID() string {
	return e.id
}

type elementRef struct {
	ELEMENT string `json:"ELEMENT"`
	W3C     string `json:"element-6066-11e4-a52e-4f735466cecf"`
}

func (r elementRef) id() string {
	if r.ELEMENT != "" {
		return r.ELEMENT
	}
	return r.W3C
}

// FindElement finds a single element.
func (c *Client) FindElement(strategy, selector string) (*Element, error) {
	req := FindElementRequest{
		Strategy: strategy,
		Selector: selector,
	}

	data, err := c.request("POST", c.sessionPath("/element"), req)
	if err != nil {
		return nil, err
	}

	var ref elementRef
	if err := decodeValue(data, &ref); err != nil {
		return nil, fmt.Errorf("parse element response: %w", err)
	}
	if ref.id() == "" {
		return nil, &ServerError{Code: ErrorNoSuchElement, Message: fmt.Sprintf("%s=%s", strategy, selector)}
	}

	return &Element{id: ref.id(), client: c}, nil
}

// ActiveElement returns the currently focused element, or nil when nothing
// has focus.
func (c *Client) ActiveElement() (*Element, error) {
	data, err := c.request("GET", c.sessionPath("/element/active"), nil)
	if err != nil {
		if IsStaleElement(err) {
			return nil, nil
		}
		return nil, err
	}

	var ref elementRef
	if err := decodeValue(data, &ref); err != nil {
		return nil, err
	}
	if ref.id() == "" {
		return nil, nil
	}

	return &Element{id: ref.id(), client: c}, nil
}

// Click taps the element.
func (e *Element) Click() error {
	_, err := e.client.request("POST", e.client.sessionPath("/element/"+e.id+"/click"), nil)
	return err
}

// Clear clears the element's text.
func (e *Element) Clear() error {
	_, err := e.client.request("POST", e.client.sessionPath("/element/"+e.id+"/clear"), nil)
	return err
}

// SendKeys types text into the element.
func (e *Element) SendKeys(text string) error {
	req := InputTextRequest{Text: text}
	_, err := e.client.request("POST", e.client.sessionPath("/element/"+e.id+"/value"), req)
	return err
}

// Attribute returns an element attribute.
func (e *Element) Attribute(name string) (string, error) {
	data, err := e.client.request("GET", e.client.sessionPath("/element/"+e.id+"/attribute/"+name), nil)
	if err != nil {
		return "", err
	}

	var attr interface{}
	if err := decodeValue(data, &attr); err != nil {
		return "", err
	}
	s, _ := attr.(string)
	return s, nil
}

// Rect returns the element's bounds.
func (e *Element) Rect() (ElementRect, error) {
	data, err := e.client.request("GET", e.client.sessionPath("/element/"+e.id+"/rect"), nil)
	if err != nil {
		return ElementRect{}, err
	}

	var rect ElementRect
	if err := decodeValue(data, &rect); err != nil {
		return ElementRect{}, err
	}
	return rect, nil
}
