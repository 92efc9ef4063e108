package service

import (
	"context"
	"errors"
	"log"
	"time"

	"gymdesk/membership-app/internal/domain"
	"gymdesk/membership-app/internal/metrics"
	"gymdesk/membership-app/internal/repository"
)

// Correlation constants. Renewal flows create the addon/assignment rows
// immediately after payment capture, so a tight window is enough.
const (
	classificationWindow = 2 * time.Minute
	priceTolerance       = 10.0
)

// PurposeProvenance records how a purpose was determined. Anything other
// than explicit is a backward-compatibility inference over legacy rows and
// must remain distinguishable for audit purposes.
type PurposeProvenance string

const (
	ProvenanceExplicit     PurposeProvenance = "explicit"
	ProvenanceFirstPayment PurposeProvenance = "inferred_first_payment"
	ProvenanceTimeWindow   PurposeProvenance = "inferred_time_window"
	ProvenanceDefault      PurposeProvenance = "inferred_default"
)

// Classification is an assigned purpose plus its provenance.
type Classification struct {
	Purpose    domain.PaymentPurpose `json:"purpose"`
	Provenance PurposeProvenance     `json:"provenance"`
}

// Degraded reports whether the purpose was inferred rather than read from
// an explicit tag. Not an error, but audit records carry it forward.
func (c Classification) Degraded() bool {
	return c.Provenance != ProvenanceExplicit
}

// CorrelationConfidence ranks how a payment was matched to its trainer
// addon/assignment for invoicing.
type CorrelationConfidence string

const (
	ConfidenceExplicitReference CorrelationConfidence = "explicit_reference"
	ConfidenceTimeWindow        CorrelationConfidence = "time_window"
	ConfidencePriceMatch        CorrelationConfidence = "price_match"
	ConfidenceMostRecent        CorrelationConfidence = "most_recent"
)

// TrainerPurchaseMatch resolves which addon and/or assignment a payment
// paid for. At least one of Addon/Assignment is non-nil.
type TrainerPurchaseMatch struct {
	Addon      *domain.Addon
	Assignment *domain.TrainerAssignment
	Confidence CorrelationConfidence
}

// --- Service Interface ---
type PaymentClassifier interface {
	// ClassifyPayment assigns exactly one purpose to a payment,
	// preferring explicit provenance over inference. Idempotent for an
	// unchanged payment and context.
	ClassifyPayment(ctx context.Context, payment domain.Payment) (Classification, error)

	// ResolveTrainerPurchase finds the addon/assignment a trainer
	// payment corresponds to, walking the correlation ladder from the
	// explicit back-reference down to most-recent matching.
	ResolveTrainerPurchase(ctx context.Context, payment domain.Payment) (*TrainerPurchaseMatch, error)
}

// --- Service Implementation ---

type paymentClassifier struct {
	paymentRepo    repository.PaymentRepository
	addonRepo      repository.AddonRepository
	assignmentRepo repository.TrainerAssignmentRepository
}

// NewPaymentClassifier creates a new instance of paymentClassifier.
func NewPaymentClassifier(
	paymentRepo repository.PaymentRepository,
	addonRepo repository.AddonRepository,
	assignmentRepo repository.TrainerAssignmentRepository,
) PaymentClassifier {
	return &paymentClassifier{
		paymentRepo:    paymentRepo,
		addonRepo:      addonRepo,
		assignmentRepo: assignmentRepo,
	}
}

// ClassifyPayment implements the classification algorithm:
//  1. An explicit payment_purpose tag is trusted verbatim; an unrecognized
//     value falls through to inference with a logged warning.
//  2. The chronologically first payment of a membership is the initial
//     purchase.
//  3. A later payment followed within 2 minutes by a trainer addon or
//     trainer assignment is a trainer renewal.
//  4. Everything else is a membership renewal.
func (s *paymentClassifier) ClassifyPayment(ctx context.Context, payment domain.Payment) (Classification, error) {
	// 1. Explicit tag wins.
	if payment.Purpose != nil {
		if domain.KnownPurpose(*payment.Purpose) {
			c := Classification{Purpose: *payment.Purpose, Provenance: ProvenanceExplicit}
			metrics.PaymentsClassifiedTotal.WithLabelValues(string(c.Purpose), string(c.Provenance)).Inc()
			return c, nil
		}
		log.Printf("WARN: payment %s carries unrecognized purpose %q, falling back to inference", payment.ID.Hex(), *payment.Purpose)
	}

	// 2. Position: first payment for the membership is the initial purchase.
	payments, err := s.paymentRepo.GetByMembershipID(ctx, payment.MembershipID)
	if err != nil {
		return Classification{}, err
	}
	if len(payments) > 0 && payments[0].ID == payment.ID {
		c := Classification{Purpose: domain.PurposeInitialPurchase, Provenance: ProvenanceFirstPayment}
		metrics.PaymentsClassifiedTotal.WithLabelValues(string(c.Purpose), string(c.Provenance)).Inc()
		return c, nil
	}

	// 3. Correlated records: a trainer addon or assignment created
	// strictly after the payment and inside the window marks a trainer
	// renewal.
	match, err := s.withinWindow(ctx, payment)
	if err != nil {
		return Classification{}, err
	}
	if match {
		c := Classification{Purpose: domain.PurposeTrainerRenewal, Provenance: ProvenanceTimeWindow}
		metrics.PaymentsClassifiedTotal.WithLabelValues(string(c.Purpose), string(c.Provenance)).Inc()
		return c, nil
	}

	// 4. Default for later payments.
	c := Classification{Purpose: domain.PurposeMembershipRenewal, Provenance: ProvenanceDefault}
	metrics.PaymentsClassifiedTotal.WithLabelValues(string(c.Purpose), string(c.Provenance)).Inc()
	return c, nil
}

// withinWindow reports whether a trainer addon or trainer assignment was
// created in (payment.CreatedAt, payment.CreatedAt + window].
func (s *paymentClassifier) withinWindow(ctx context.Context, payment domain.Payment) (bool, error) {
	deadline := payment.CreatedAt.Add(classificationWindow)

	addons, err := s.addonRepo.GetByMembershipID(ctx, payment.MembershipID)
	if err != nil {
		return false, err
	}
	for _, a := range addons {
		if a.Type != domain.AddonPersonalTrainer {
			continue
		}
		if a.CreatedAt.After(payment.CreatedAt) && !a.CreatedAt.After(deadline) {
			return true, nil
		}
	}

	assignments, err := s.assignmentRepo.GetByMembershipID(ctx, payment.MembershipID)
	if err != nil {
		return false, err
	}
	for _, a := range assignments {
		if a.CreatedAt.After(payment.CreatedAt) && !a.CreatedAt.After(deadline) {
			return true, nil
		}
	}
	return false, nil
}

// ResolveTrainerPurchase walks the correlation ladder. Every rung below the
// explicit reference logs a degraded-confidence line; the heuristics exist
// only for rows created before explicit tagging.
func (s *paymentClassifier) ResolveTrainerPurchase(ctx context.Context, payment domain.Payment) (*TrainerPurchaseMatch, error) {
	// (0) Explicit metadata back-reference.
	assignment, err := s.assignmentRepo.GetByPaymentRef(ctx, payment.ID)
	if err == nil {
		match := &TrainerPurchaseMatch{Assignment: assignment, Confidence: ConfidenceExplicitReference}
		if assignment.Metadata.AddonID != nil {
			if addon, aerr := s.addonRepo.GetByID(ctx, *assignment.Metadata.AddonID); aerr == nil {
				match.Addon = addon
			}
		}
		return match, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	addons, err := s.addonRepo.GetByMembershipID(ctx, payment.MembershipID)
	if err != nil {
		return nil, err
	}
	trainerAddons := make([]domain.Addon, 0, len(addons))
	for _, a := range addons {
		if a.Type == domain.AddonPersonalTrainer {
			trainerAddons = append(trainerAddons, a)
		}
	}

	// (i) Time-window correlation.
	deadline := payment.CreatedAt.Add(classificationWindow)
	for i := range trainerAddons {
		a := trainerAddons[i]
		if a.CreatedAt.After(payment.CreatedAt) && !a.CreatedAt.After(deadline) {
			log.Printf("WARN: payment %s matched addon %s by time window (degraded confidence)", payment.ID.Hex(), a.ID.Hex())
			return &TrainerPurchaseMatch{Addon: &trainerAddons[i], Confidence: ConfidenceTimeWindow}, nil
		}
	}

	// (ii) Price-equality correlation.
	for i := range trainerAddons {
		a := trainerAddons[i]
		diff := a.Price - payment.Amount
		if diff >= -priceTolerance && diff <= priceTolerance {
			log.Printf("WARN: payment %s matched addon %s by price (degraded confidence)", payment.ID.Hex(), a.ID.Hex())
			return &TrainerPurchaseMatch{Addon: &trainerAddons[i], Confidence: ConfidencePriceMatch}, nil
		}
	}

	// (iii) Most recent record of the right type. Addons are returned
	// newest first.
	if len(trainerAddons) > 0 {
		log.Printf("WARN: payment %s matched addon %s as most recent (degraded confidence)", payment.ID.Hex(), trainerAddons[0].ID.Hex())
		return &TrainerPurchaseMatch{Addon: &trainerAddons[0], Confidence: ConfidenceMostRecent}, nil
	}

	return nil, ErrMissingReference
}
