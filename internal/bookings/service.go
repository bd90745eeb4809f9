package bookings

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/phonelife/storefront/pkg/errors"
	"github.com/phonelife/storefront/pkg/logger"
	"github.com/phonelife/storefront/pkg/shopapi"
)

// AppointmentInput is a repair booking request.
type AppointmentInput struct {
	Name       string `json:"name" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"required,max=40"`
	Email      string `json:"email" validate:"omitempty,email"`
	DeviceType string `json:"deviceType" validate:"required"`
	Model      string `json:"model" validate:"max=120"`
	IssueType  string `json:"issueType" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Time       string `json:"time" validate:"required,datetime=15:04"`
	Details    string `json:"details" validate:"max=2000"`
}

// QuoteInput is a repair estimate request.
type QuoteInput struct {
	Name       string `json:"name" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"required,max=40"`
	Email      string `json:"email" validate:"omitempty,email"`
	DeviceType string `json:"deviceType" validate:"required"`
	Model      string `json:"model" validate:"max=120"`
	IssueType  string `json:"issueType" validate:"required"`
	Details    string `json:"details" validate:"max=2000"`
}

// Service forwards bookings and quote requests to the shop API.
type Service interface {
	BookAppointment(ctx context.Context, in AppointmentInput) error
	RequestQuote(ctx context.Context, in QuoteInput) error
}

type bookingAPI interface {
	CreateAppointment(ctx context.Context, appt shopapi.Appointment) error
	CreateQuote(ctx context.Context, quote shopapi.Quote) error
}

type service struct {
	api      bookingAPI
	logg     *logger.Logger
	validate *validator.Validate
}

func NewService(api bookingAPI, logg *logger.Logger) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("shop api client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return &service{api: api, logg: logg, validate: v}, nil
}

func (s *service) BookAppointment(ctx context.Context, in AppointmentInput) error {
	in = trimAppointment(in)
	if err := s.check(in); err != nil {
		return err
	}
	err := s.api.CreateAppointment(ctx, shopapi.Appointment{
		Name:       in.Name,
		Phone:      in.Phone,
		Email:      in.Email,
		DeviceType: in.DeviceType,
		Model:      in.Model,
		IssueType:  in.IssueType,
		Date:       in.Date,
		Time:       in.Time,
		Details:    in.Details,
	})
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"device_type": in.DeviceType,
		"date":        in.Date,
		"time":        in.Time,
	}), "appointment booked")
	return nil
}

func (s *service) RequestQuote(ctx context.Context, in QuoteInput) error {
	in = trimQuote(in)
	if err := s.check(in); err != nil {
		return err
	}
	err := s.api.CreateQuote(ctx, shopapi.Quote{
		Name:       in.Name,
		Phone:      in.Phone,
		Email:      in.Email,
		DeviceType: in.DeviceType,
		Model:      in.Model,
		IssueType:  in.IssueType,
		Details:    in.Details,
	})
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "device_type", in.DeviceType), "quote requested")
	return nil
}

func (s *service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = fe.Tag()
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func trimAppointment(in AppointmentInput) AppointmentInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.DeviceType = strings.TrimSpace(in.DeviceType)
	in.Model = strings.TrimSpace(in.Model)
	in.IssueType = strings.TrimSpace(in.IssueType)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Details = strings.TrimSpace(in.Details)
	return in
}

func trimQuote(in QuoteInput) QuoteInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.DeviceType = strings.TrimSpace(in.DeviceType)
	in.Model = strings.TrimSpace(in.Model)
	in.IssueType = strings.TrimSpace(in.IssueType)
	in.Details = strings.TrimSpace(in.Details)
	return in
}
