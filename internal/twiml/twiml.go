// Package twiml builds the Twilio voice response markup the webhook handlers
// return. Only the verbs the call flow needs are modeled.
package twiml

import (
	"encoding/xml"
	"fmt"
	"net/http"
)

// Say speaks text to the caller.
type Say struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

// Gather collects the caller's next utterance as speech and posts the
// transcription to Action.
type Gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr,omitempty"`
	Method        string   `xml:"method,attr,omitempty"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Say           *Say     `xml:"Say,omitempty"`
}

// Redirect re-enters the webhook when a Gather times out with no speech, so
// the handler can count the silent turn.
type Redirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr,omitempty"`
	URL     string   `xml:",chardata"`
}

// Hangup terminates the call.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// Response is the document root. Verbs execute in order.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

// GatherSpeech returns the standard "speak, then listen" document: say text,
// gather speech back to action, and redirect to action when nothing was said.
func GatherSpeech(text, action string) *Response {
	return &Response{Verbs: []any{
		&Gather{
			Input:         "speech",
			Action:        action,
			Method:        http.MethodPost,
			SpeechTimeout: "auto",
			Say:           &Say{Text: text},
		},
		&Redirect{Method: http.MethodPost, URL: action},
	}}
}

// SayHangup returns the closing document: say text, then hang up.
func SayHangup(text string) *Response {
	return &Response{Verbs: []any{
		&Say{Text: text},
		&Hangup{},
	}}
}

// Render marshals the response with the XML declaration Twilio expects.
func (r *Response) Render() ([]byte, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal twiml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// Write renders the document onto an HTTP response.
func Write(w http.ResponseWriter, r *Response) error {
	body, err := r.Render()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	_, err = w.Write(body)
	return err
}
