package models

import (
	"encoding/json"
	"fmt"
)

// NodeType identifies the behaviour of a workflow node.
type NodeType string

const (
	NodeTypeStart        NodeType = "start"
	NodeTypeStatus       NodeType = "status"
	NodeTypeApproval     NodeType = "approval"
	NodeTypeNotification NodeType = "notification"
	NodeTypeCondition    NodeType = "condition"
	NodeTypeEnd          NodeType = "end"
)

func NodeTypes() []NodeType {
	return []NodeType{
		NodeTypeStart,
		NodeTypeStatus,
		NodeTypeApproval,
		NodeTypeNotification,
		NodeTypeCondition,
		NodeTypeEnd,
	}
}

func (t NodeType) Valid() bool {
	for _, nodeType := range NodeTypes() {
		if t == nodeType {
			return true
		}
	}

	return false
}

// NotificationTarget selects which channels a notification node uses.
type NotificationTarget string

const (
	NotifyEmail NotificationTarget = "email"
	NotifySMS   NotificationTarget = "sms"
	NotifyBoth  NotificationTarget = "both"
)

// Channels expands the target into concrete channels, email first.
func (t NotificationTarget) Channels() []NotificationChannel {
	switch t {
	case NotifyEmail:
		return []NotificationChannel{ChannelEmail}
	case NotifySMS:
		return []NotificationChannel{ChannelSMS}
	case NotifyBoth:
		return []NotificationChannel{ChannelEmail, ChannelSMS}
	default:
		return nil
	}
}

// NodeData is the type-dependent configuration of a node. Each node type has
// exactly one variant; the engine switches over the concrete type.
type NodeData interface {
	NodeType() NodeType
	DisplayLabel() string
}

type StartData struct {
	Label string `json:"label,omitempty"`
}

type StatusData struct {
	Label  string        `json:"label,omitempty"`
	Status BookingStatus `json:"status"`
}

// ApprovalData configures an approval step. Timeout is in hours and is
// informational only: approvals resolve immediately during execution.
type ApprovalData struct {
	Label         string `json:"label,omitempty"`
	ApprovalLevel string `json:"approvalLevel,omitempty"`
	Timeout       int    `json:"timeout,omitempty"`
}

type NotificationData struct {
	Label            string             `json:"label,omitempty"`
	NotificationType NotificationTarget `json:"notificationType"`
	Message          string             `json:"message"`
}

// ConditionData holds the authored condition. Condition is free text used by
// status-change trigger matching; Field/Operator/Value and Expression are only
// evaluated when the engine runs in evaluate branch mode.
type ConditionData struct {
	Label      string `json:"label,omitempty"`
	Condition  string `json:"condition"`
	Field      string `json:"field,omitempty"`
	Operator   string `json:"operator,omitempty"`
	Value      any    `json:"value,omitempty"`
	Expression string `json:"expression,omitempty"`
}

type EndData struct {
	Label string `json:"label,omitempty"`
}

func (StartData) NodeType() NodeType        { return NodeTypeStart }
func (StatusData) NodeType() NodeType       { return NodeTypeStatus }
func (ApprovalData) NodeType() NodeType     { return NodeTypeApproval }
func (NotificationData) NodeType() NodeType { return NodeTypeNotification }
func (ConditionData) NodeType() NodeType    { return NodeTypeCondition }
func (EndData) NodeType() NodeType          { return NodeTypeEnd }

func (d StartData) DisplayLabel() string        { return orDefault(d.Label, "Start") }
func (d StatusData) DisplayLabel() string       { return orDefault(d.Label, "Change Status") }
func (d ApprovalData) DisplayLabel() string     { return orDefault(d.Label, "Approval") }
func (d NotificationData) DisplayLabel() string { return orDefault(d.Label, "Notification") }
func (d ConditionData) DisplayLabel() string    { return orDefault(d.Label, "Condition") }
func (d EndData) DisplayLabel() string          { return orDefault(d.Label, "End") }

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}

// DecodeNodeData decodes raw JSON into the variant matching nodeType.
func DecodeNodeData(nodeType NodeType, raw json.RawMessage) (NodeData, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}

	var (
		data NodeData
		err  error
	)

	switch nodeType {
	case NodeTypeStart:
		var d StartData
		err = json.Unmarshal(raw, &d)
		data = d
	case NodeTypeStatus:
		var d StatusData
		err = json.Unmarshal(raw, &d)
		data = d
	case NodeTypeApproval:
		var d ApprovalData
		err = json.Unmarshal(raw, &d)
		data = d
	case NodeTypeNotification:
		var d NotificationData
		err = json.Unmarshal(raw, &d)
		data = d
	case NodeTypeCondition:
		var d ConditionData
		err = json.Unmarshal(raw, &d)
		data = d
	case NodeTypeEnd:
		var d EndData
		err = json.Unmarshal(raw, &d)
		data = d
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, nodeType)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode %s node data: %w", nodeType, err)
	}

	return data, nil
}

// DefaultNodeData returns the zero configuration for a node type.
func DefaultNodeData(nodeType NodeType) (NodeData, error) {
	return DecodeNodeData(nodeType, nil)
}

// NormalizeNodeData returns data as the value variant the engine switches
// over. Pointer variants are dereferenced; nil data or a nil pointer yields the
// defaults of nodeType.
func NormalizeNodeData(nodeType NodeType, data NodeData) (NodeData, error) {
	switch d := data.(type) {
	case nil:
		return DefaultNodeData(nodeType)
	case *StartData:
		return derefNodeData(nodeType, d)
	case *StatusData:
		return derefNodeData(nodeType, d)
	case *ApprovalData:
		return derefNodeData(nodeType, d)
	case *NotificationData:
		return derefNodeData(nodeType, d)
	case *ConditionData:
		return derefNodeData(nodeType, d)
	case *EndData:
		return derefNodeData(nodeType, d)
	default:
		return data, nil
	}
}

func derefNodeData[T NodeData](nodeType NodeType, p *T) (NodeData, error) {
	if p == nil {
		return DefaultNodeData(nodeType)
	}

	return *p, nil
}
