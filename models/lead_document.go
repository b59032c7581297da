package models

import "time"

/************************************************
/**** MARK: DOCUMENT TYPES ****/
/************************************************/
const DOC_TYPE_TARIFS = "tarifs"
const DOC_TYPE_DESCRIPTIF = "descriptif"
const DOC_TYPE_CARNET = "carnet"

/************************************************
/**** MARK: DOCUMENT STATUS ****/
/************************************************/
const DOC_STATUS_PENDING = "pending"
const DOC_STATUS_READY = "ready"

// LeadDocument é o status de um entregável PDF por lead e por tipo.
// Chave composta (lead_id, doc_type): no máximo uma linha por par, sempre
// upsert. URL deve ser nula enquanto pending e não-vazia quando ready.
type LeadDocument struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"-"`
	LeadID    string     `gorm:"type:varchar(36);not null;unique_index:idx_lead_doc" json:"lead_id"`
	DocType   string     `gorm:"not null;unique_index:idx_lead_doc" json:"doc_type"`
	Status    string     `gorm:"not null;default:'pending'" json:"status"`
	URL       *string    `json:"url"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func IsDocType(v string) bool {
	return v == DOC_TYPE_TARIFS || v == DOC_TYPE_DESCRIPTIF || v == DOC_TYPE_CARNET
}

func IsDocStatus(v string) bool {
	return v == DOC_STATUS_PENDING || v == DOC_STATUS_READY
}
