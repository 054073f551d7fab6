package uiautomator2

// Click taps at coordinates.
func (c *Client) Click(x, y int) error {
	req := ClickRequest{Offset: &PointModel{X: x, Y: y}}
	_, err := c.request("POST", c.sessionPath("/appium/gestures/click"), req)
	return err
}

// ClickElement taps the center of an element.
func (c *Client) ClickElement(elementID string) error {
	req := ClickRequest{Origin: &ElementModel{ELEMENT: elementID}}
	_, err := c.request("POST", c.sessionPath("/appium/gestures/click"), req)
	return err
}

// LongClick presses at coordinates for durationMs.
func (c *Client) LongClick(x, y, durationMs int) error {
	req := LongClickRequest{Offset: &PointModel{X: x, Y: y}, Duration: durationMs}
	_, err := c.request("POST", c.sessionPath("/appium/gestures/long_click"), req)
	return err
}
