package server

import (
	"time"

	"loom/internal/unit"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type createPacketPayload struct {
	SourceRef   string   `json:"sourceRef"`
	SourceText  string   `json:"sourceText"`
	TemplateRef string   `json:"templateRef"`
	StyleTagRef string   `json:"styleTagRef,omitempty"`
	TaskType    string   `json:"taskType,omitempty"`
	Granularity string   `json:"granularity"`
	Translators []string `json:"translators"`
}

type draftPayload struct {
	TargetText string `json:"targetText"`
}

type submitPayload struct {
	TargetText string `json:"targetText,omitempty"`
}

type reviewPayload struct {
	Decision string   `json:"decision"`
	Checked  []string `json:"checked,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

type packetResponse struct {
	ID          string         `json:"id"`
	SourceRef   string         `json:"sourceRef"`
	TemplateRef string         `json:"templateRef"`
	StyleTagRef string         `json:"styleTagRef,omitempty"`
	TaskType    string         `json:"taskType"`
	Granularity string         `json:"granularity"`
	Status      string         `json:"status"`
	CreatedBy   string         `json:"createdBy"`
	CreatedAt   time.Time      `json:"createdAt"`
	Progress    map[string]int `json:"progress,omitempty"`
}

type unitResponse struct {
	ID              int64      `json:"id"`
	PacketID        string     `json:"packetId"`
	SequenceNumber  int        `json:"sequenceNumber"`
	SourceText      string     `json:"sourceText"`
	TargetText      string     `json:"targetText,omitempty"`
	Status          string     `json:"status"`
	AssignedTo      string     `json:"assignedTo"`
	ReviewedBy      string     `json:"reviewedBy,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	QualityScore    int        `json:"qualityScore,omitempty"`
	SubmittedAt     *time.Time `json:"submittedAt,omitempty"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
}

type packetListResponse struct {
	Packets []packetResponse `json:"packets"`
}

type packetCreatedResponse struct {
	Packet packetResponse `json:"packet"`
	Units  []unitResponse `json:"units"`
}

type unitListResponse struct {
	Units []unitResponse `json:"units"`
}

func packetView(p *unit.Packet) packetResponse {
	return packetResponse{
		ID:          p.ID,
		SourceRef:   p.SourceRef,
		TemplateRef: p.TemplateRef,
		StyleTagRef: p.StyleTagRef,
		TaskType:    p.TaskType,
		Granularity: string(p.Granularity),
		Status:      string(p.Status),
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
	}
}

func unitView(item *unit.Item) unitResponse {
	return unitResponse{
		ID:              item.ID,
		PacketID:        item.PacketID,
		SequenceNumber:  item.SequenceNumber,
		SourceText:      item.SourceText,
		TargetText:      item.TargetText,
		Status:          string(item.Status),
		AssignedTo:      item.AssignedTo,
		ReviewedBy:      item.ReviewedBy,
		RejectionReason: item.RejectionReason,
		QualityScore:    item.QualityScore,
		SubmittedAt:     item.SubmittedAt,
		ReviewedAt:      item.ReviewedAt,
	}
}

func unitViews(items []*unit.Item) []unitResponse {
	out := make([]unitResponse, len(items))
	for i, item := range items {
		out[i] = unitView(item)
	}
	return out
}
