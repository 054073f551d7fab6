package uiautomator2

import (
	"encoding/base64"
	"fmt"
)

// Back presses the back button.
func (c *Client) Back() error {
	_, err := c.request("POST", c.sessionPath("/back"), nil)
	return err
}

// IsKeyboardShown reports whether the soft keyboard is visible.
func (c *Client) IsKeyboardShown() (bool, error) {
	data, err := c.request("GET", c.sessionPath("/appium/device/is_keyboard_shown"), nil)
	if err != nil {
		return false, err
	}

	var shown bool
	if err := decodeValue(data, &shown); err != nil {
		return false, err
	}
	return shown, nil
}

// HideKeyboard hides the soft keyboard.
func (c *Client) HideKeyboard() error {
	_, err := c.request("POST", c.sessionPath("/appium/device/hide_keyboard"), nil)
	return err
}

// GetDeviceInfo returns device information.
func (c *Client) GetDeviceInfo() (*DeviceInfo, error) {
	data, err := c.request("GET", c.sessionPath("/appium/device/info"), nil)
	if err != nil {
		return nil, err
	}

	var info DeviceInfo
	if err := decodeValue(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// WindowSize returns the current window size.
func (c *Client) WindowSize() (WindowRect, error) {
	data, err := c.request("GET", c.sessionPath("/window/current/size"), nil)
	if err != nil {
		return WindowRect{}, err
	}

	var size WindowRect
	if err := decodeValue(data, &size); err != nil {
		return WindowRect{}, err
	}
	return size, nil
}

// Screenshot captures the screen as PNG.
func (c *Client) Screenshot() ([]byte, error) {
	data, err := c.request("GET", c.sessionPath("/screenshot"), nil)
	if err != nil {
		return nil, err
	}

	var value interface{}
	if err := decodeValue(data, &value); err != nil {
		return nil, err
	}
	b64, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected screenshot response")
	}
	return base64.StdEncoding.DecodeString(b64)
}

// Source returns the UI hierarchy XML.
func (c *Client) Source() (string, error) {
	data, err := c.request("GET", c.sessionPath("/source"), nil)
	if err != nil {
		return "", err
	}

	var value interface{}
	if err := decodeValue(data, &value); err != nil {
		return "", err
	}
	source, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("unexpected source response")
	}
	return source, nil
}
