// Package gosoap builds SOAP 1.2 envelopes for ONVIF requests and recognises SOAP faults.
package gosoap

import (
	//nolint: gosec
	"crypto/sha1"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"time"

	"github.com/beevik/etree"
	"github.com/elgs/gostrgen"
)

const (
	envelopeNamespace = "http://www.w3.org/2003/05/soap-envelope"
	encodingNamespace = "http://www.w3.org/2003/05/soap-encoding"
)

// Message is a SOAP envelope under construction.
type Message struct {
	doc    *etree.Document
	root   *etree.Element
	header *etree.Element
	body   *etree.Element
}

// NewMessage returns an empty envelope with a header and a body.
func NewMessage() *Message {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	env := doc.CreateElement("soap-env:Envelope")
	env.CreateAttr("xmlns:soap-env", envelopeNamespace)
	env.CreateAttr("xmlns:soap-enc", encodingNamespace)
	return &Message{
		doc:    doc,
		root:   env,
		header: env.CreateElement("soap-env:Header"),
		body:   env.CreateElement("soap-env:Body"),
	}
}

// AddRootNamespace declares a namespace prefix on the envelope.
func (msg *Message) AddRootNamespace(prefix, uri string) {
	msg.root.CreateAttr("xmlns:"+prefix, uri)
}

// AddBodyContent appends element to the body.
func (msg *Message) AddBodyContent(element *etree.Element) {
	msg.body.AddChild(element)
}

// AddBodyXML parses data and appends its root element to the body.
func (msg *Message) AddBodyXML(data []byte) error {
	root, err := parseRoot(data)
	if err != nil {
		return err
	}
	msg.body.AddChild(root)
	return nil
}

// AddHeaderXML parses data and appends its root element to the header.
func (msg *Message) AddHeaderXML(data []byte) error {
	root, err := parseRoot(data)
	if err != nil {
		return err
	}
	msg.header.AddChild(root)
	return nil
}

// AddWSSecurity adds a WS-Security UsernameToken header using a password digest.
func (msg *Message) AddWSSecurity(username, password string) error {
	nonceSeq, err := gostrgen.RandGen(nonceLength, gostrgen.Lower|gostrgen.Digit, "", "")
	if err != nil {
		return err
	}
	auth := newSecurity(username, password, nonceSeq, time.Now())

	soapReq, err := xml.MarshalIndent(auth, "", "  ")
	if err != nil {
		return err
	}
	return msg.AddHeaderXML(soapReq)
}

// Bytes serialises the envelope.
func (msg *Message) Bytes() ([]byte, error) {
	return msg.doc.WriteToBytes()
}

func (msg *Message) String() string {
	s, err := msg.doc.WriteToString()
	if err != nil {
		return ""
	}
	return s
}

func parseRoot(data []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("xml fragment has no root element")
	}
	return root, nil
}

/*
************************

	WS-Security types

************************.
*/
const (
	//nolint: gosec
	passwordType = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordDigest"
	// nolint: gosec
	encodingType = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-soap-message-security-1.0#Base64Binary"

	// 32 characters of [a-z0-9] are valid base64 and decode to 24 bytes.
	nonceLength = 32
)

// Security is the wsse:Security header.
type Security struct {
	XMLName xml.Name `xml:"http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd Security"`
	Auth    wsAuth
}

type password struct {
	Type     string `xml:"Type,attr"`
	Password string `xml:",chardata"`
}

type nonce struct {
	Type  string `xml:"EncodingType,attr"`
	Nonce string `xml:",chardata"`
}

type wsAuth struct {
	XMLName  xml.Name `xml:"UsernameToken"`
	Username string   `xml:"Username"`
	Password password `xml:"Password"`
	Nonce    nonce    `xml:"Nonce"`
	Created  string   `xml:"http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd Created"`
}

func newSecurity(username, passwd, nonceSeq string, now time.Time) Security {
	created := now.UTC().Format(time.RFC3339Nano)
	return Security{
		Auth: wsAuth{
			Username: username,
			Password: password{
				Type:     passwordType,
				Password: generateToken(nonceSeq, created, passwd),
			},
			Nonce: nonce{
				Type:  encodingType,
				Nonce: nonceSeq,
			},
			Created: created,
		},
	}
}

// Digest = B64ENCODE( SHA1( B64DECODE( Nonce ) + Date + Password ) ).
func generateToken(nonceSeq, created, passwd string) string {
	sDec, _ := base64.StdEncoding.DecodeString(nonceSeq)

	//nolint: gosec
	hasher := sha1.New()
	hasher.Write([]byte(string(sDec) + created + passwd))

	return base64.StdEncoding.EncodeToString(hasher.Sum(nil))
}
