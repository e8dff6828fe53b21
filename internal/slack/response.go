package slack

import (
	"fmt"
	"strings"
)

const (
	ResponseEphemeral = "ephemeral"
	ResponseInChannel = "in_channel"
)

// Response is a message posted in reply to a slash command, either as the
// synchronous HTTP answer or to its response_url.
type Response struct {
	ResponseType    string       `json:"response_type,omitempty"`
	Text            string       `json:"text"`
	Attachments     []Attachment `json:"attachments,omitempty"`
	ReplaceOriginal bool         `json:"replace_original,omitempty"`
}

type Attachment struct {
	Fallback  string  `json:"fallback,omitempty"`
	Color     string  `json:"color,omitempty"`
	Title     string  `json:"title,omitempty"`
	TitleLink string  `json:"title_link,omitempty"`
	Text      string  `json:"text,omitempty"`
	Fields    []Field `json:"fields,omitempty"`
}

type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short,omitempty"`
}

// Ephemeral builds a response only the invoking user sees.
func Ephemeral(format string, args ...any) Response {
	return Response{ResponseType: ResponseEphemeral, Text: fmt.Sprintf(format, args...)}
}

// InChannel builds a response visible to the whole channel.
func InChannel(format string, args ...any) Response {
	return Response{ResponseType: ResponseInChannel, Text: fmt.Sprintf(format, args...)}
}

// Concat merges two responses into one message. Texts are joined by a
// newline and attachments appended. The result is posted in channel when
// either part is.
func Concat(a, b Response) Response {
	out := Response{
		ResponseType:    a.ResponseType,
		ReplaceOriginal: a.ReplaceOriginal || b.ReplaceOriginal,
	}
	if a.ResponseType == ResponseInChannel || b.ResponseType == ResponseInChannel {
		out.ResponseType = ResponseInChannel
	} else if out.ResponseType == "" {
		out.ResponseType = b.ResponseType
	}

	var texts []string
	for _, t := range []string{a.Text, b.Text} {
		if t != "" {
			texts = append(texts, t)
		}
	}
	out.Text = strings.Join(texts, "\n")
	out.Attachments = append(append(out.Attachments, a.Attachments...), b.Attachments...)
	return out
}
