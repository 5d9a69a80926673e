// Package twiml renders Twilio Messaging replies.
package twiml

import (
	"encoding/xml"
	"net/http"
)

const ContentType = "application/xml"

// Response is the <Response> envelope Twilio reads back from a webhook.
type Response struct {
	XMLName  xml.Name  `xml:"Response"`
	Messages []Message `xml:"Message"`
}

type Message struct {
	Body string `xml:",chardata"`
}

// Reply builds a response carrying a single message.
func Reply(text string) Response {
	return Response{Messages: []Message{{Body: text}}}
}

func (r Response) Marshal() ([]byte, error) {
	b, err := xml.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), b...), nil
}

// Write always answers 200; Twilio drops the body of any other status.
func Write(w http.ResponseWriter, r Response) error {
	b, err := r.Marshal()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(b)
	return err
}
