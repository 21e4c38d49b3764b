package gosoap

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Fault is a SOAP fault returned by a device. Both SOAP 1.2 (Code/Subcode/Reason) and
// SOAP 1.1 (faultcode/faultstring) shapes are recognised.
type Fault struct {
	Code    string
	Subcode string
	Reason  string
}

func (f *Fault) Error() string {
	var sb strings.Builder
	sb.WriteString("soap fault")
	if f.Code != "" {
		sb.WriteString(" ")
		sb.WriteString(f.Code)
	}
	if f.Subcode != "" {
		sb.WriteString("/")
		sb.WriteString(f.Subcode)
	}
	if f.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(f.Reason)
	}
	return sb.String()
}

// IsNotAuthorized reports whether the fault is an ONVIF ter:NotAuthorized sender fault.
func (f *Fault) IsNotAuthorized() bool {
	return strings.EqualFold(localName(f.Subcode), "NotAuthorized")
}

// IsActionNotSupported reports whether the device rejected the action as unsupported.
func (f *Fault) IsActionNotSupported() bool {
	sub := localName(f.Subcode)
	return strings.EqualFold(sub, "ActionNotSupported") || strings.EqualFold(sub, "NotSupported")
}

// ParseFault returns the fault carried by body, or nil if body is not a fault.
func ParseFault(body []byte) *Fault {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil
	}
	el := doc.FindElement("./Envelope/Body/Fault")
	if el == nil {
		return nil
	}

	f := &Fault{}
	if code := el.FindElement("./Code/Value"); code != nil {
		f.Code = strings.TrimSpace(code.Text())
	} else if code := el.FindElement("./faultcode"); code != nil {
		f.Code = strings.TrimSpace(code.Text())
	}
	// Subcodes nest; the innermost one is the most specific.
	for sub := el.FindElement("./Code/Subcode"); sub != nil; sub = sub.FindElement("./Subcode") {
		if v := sub.FindElement("./Value"); v != nil {
			f.Subcode = strings.TrimSpace(v.Text())
		}
	}
	if reason := el.FindElement("./Reason/Text"); reason != nil {
		f.Reason = strings.TrimSpace(reason.Text())
	} else if reason := el.FindElement("./faultstring"); reason != nil {
		f.Reason = strings.TrimSpace(reason.Text())
	}
	return f
}

func localName(qname string) string {
	if i := strings.LastIndex(qname, ":"); i >= 0 {
		return qname[i+1:]
	}
	return qname
}

// String renders the fault as it would appear in a log line.
func (f *Fault) String() string {
	return fmt.Sprintf("%s (code=%q subcode=%q)", f.Reason, f.Code, f.Subcode)
}
