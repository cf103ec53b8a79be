package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/tintd/salon-dispatch/internal/model"
	"github.com/tintd/salon-dispatch/internal/repository"
)

// PartnerService covers partner onboarding, duty and the notification inbox.
type PartnerService struct {
	partners PartnerDirectory
	inbox    NotificationStore
	seq      Sequencer
	logger   Logger
	now      func() time.Time
}

func NewPartnerService(partners PartnerDirectory, inbox NotificationStore, seq Sequencer, logger Logger) *PartnerService {
	return &PartnerService{partners: partners, inbox: inbox, seq: seq, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Register creates the partner profile for the authenticated partner
// account. New partners wait for admin approval.
func (s *PartnerService) Register(ctx context.Context, p Principal, name, phone string) (*model.Partner, error) {
	name, phone = strings.TrimSpace(name), strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return nil, newErr(KindValidation, "name and phone are required")
	}
	if strings.TrimSpace(p.Email) == "" {
		return nil, newErr(KindValidation, "token carries no email")
	}
	if _, err := s.partners.Get(ctx, p.ID); err == nil {
		return nil, newErr(KindConflict, "partner already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, internal("load partner", err)
	}
	now := s.now()
	partner := &model.Partner{
		ID:        p.ID,
		Name:      name,
		Email:     strings.ToLower(strings.TrimSpace(p.Email)),
		Phone:     phone,
		Approval:  model.ApprovalPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.partners.Create(ctx, partner); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, wrapErr(KindConflict, "email already registered", err)
		}
		return nil, internal("create partner", err)
	}
	s.logger.Infoj(log.JSON{"event": "partner.registered", "partner_id": partner.ID})
	return partner, nil
}

// Get returns one partner.
func (s *PartnerService) Get(ctx context.Context, id string) (*model.Partner, error) {
	p, err := s.partners.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "partner")
	}
	return p, nil
}

// SetDuty toggles whether the partner receives new booking fan-out.
func (s *PartnerService) SetDuty(ctx context.Context, id string, on bool) (*model.Partner, error) {
	if err := s.partners.SetDuty(ctx, id, on); err != nil {
		return nil, storeErr(err, "partner")
	}
	s.logger.Infoj(log.JSON{"event": "partner.duty", "partner_id": id, "on_duty": on})
	return s.Get(ctx, id)
}

// SetPushToken stores the device token. An empty token clears it.
func (s *PartnerService) SetPushToken(ctx context.Context, id, token string) error {
	var t *string
	if token = strings.TrimSpace(token); token != "" {
		t = &token
	}
	if err := s.partners.SetPushToken(ctx, id, t); err != nil {
		return storeErr(err, "partner")
	}
	return nil
}

// Notifications lists the partner's inbox.
func (s *PartnerService) Notifications(ctx context.Context, id string) ([]model.Notification, error) {
	out, err := s.inbox.ListForPartner(ctx, id)
	if err != nil {
		return nil, internal("list notifications", err)
	}
	return out, nil
}

// MarkRead marks one of the partner's notifications as read.
func (s *PartnerService) MarkRead(ctx context.Context, partnerID, notificationID string) error {
	ok, err := s.inbox.MarkRead(ctx, notificationID, partnerID)
	if err != nil {
		return internal("mark notification read", err)
	}
	if !ok {
		return newErr(KindNotFound, "notification not found")
	}
	return nil
}

// Approve admits a partner and hands out its tdpartner code on first
// approval.
func (s *PartnerService) Approve(ctx context.Context, id string) (*model.Partner, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var code *string
	if p.Code == nil {
		n, err := s.seq.Next(ctx, model.SequencePartner)
		if err != nil {
			return nil, internal("next partner sequence", err)
		}
		c := model.PartnerCode(n)
		code = &c
	}
	if err := s.partners.SetApproval(ctx, id, model.ApprovalApproved, code); err != nil {
		return nil, storeErr(err, "partner")
	}
	s.logger.Infoj(log.JSON{"event": "partner.approved", "partner_id": id})
	return s.Get(ctx, id)
}

// Reject refuses a partner; rejected partners fail the partner gate.
func (s *PartnerService) Reject(ctx context.Context, id string) (*model.Partner, error) {
	if err := s.partners.SetApproval(ctx, id, model.ApprovalRejected, nil); err != nil {
		return nil, storeErr(err, "partner")
	}
	if err := s.partners.SetDuty(ctx, id, false); err != nil {
		return nil, storeErr(err, "partner")
	}
	s.logger.Infoj(log.JSON{"event": "partner.rejected", "partner_id": id})
	return s.Get(ctx, id)
}
