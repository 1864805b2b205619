package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/acorn-io/dns-converge/pkg/reconcile"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/route53"
	"github.com/aws/aws-sdk-go/service/route53/route53iface"
	"github.com/sirupsen/logrus"
)

const (
	Route53Name = "aws"

	route53TTL      = 300
	route53MaxItems = "100"
	route53Comment  = "automatically updated by dns-converge"
	// Route53 stores "*" as an octal escape.
	route53Wildcard = "\\052"
)

type route53Backend struct {
	log *logrus.Entry
	svc route53iface.Route53API
}

// NewRoute53 builds the AWS adapter. Required settings: accessKeyId, secretAccessKey.
// Optional: region (default us-east-1, Route53 itself is global).
func NewRoute53(log *logrus.Entry, settings map[string]string) (Backend, error) {
	if err := requireSettings(Route53Name, settings, "accessKeyId", "secretAccessKey"); err != nil {
		return nil, err
	}

	region := settings["region"]
	if region == "" {
		region = "us-east-1"
	}

	s, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewStaticCredentials(settings["accessKeyId"], settings["secretAccessKey"], ""),
		MaxRetries:  aws.Int(3),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Route53Name, err)
	}

	return newRoute53Backend(log, route53.New(s)), nil
}

func newRoute53Backend(log *logrus.Entry, svc route53iface.Route53API) *route53Backend {
	return &route53Backend{
		log: log,
		svc: svc,
	}
}

func (b *route53Backend) Name() string {
	return Route53Name
}

func (b *route53Backend) Ensure(ctx context.Context, records []model.Record) error {
	return ensureZones(ctx, Route53Name, b.log, b, records)
}

func (b *route53Backend) ListZones(ctx context.Context) ([]model.Zone, error) {
	var zones []model.Zone
	err := b.svc.ListHostedZonesPagesWithContext(ctx, &route53.ListHostedZonesInput{
		MaxItems: aws.String(route53MaxItems),
	}, func(page *route53.ListHostedZonesOutput, lastPage bool) bool {
		for _, hz := range page.HostedZones {
			zones = append(zones, model.Zone{
				ID:   aws.StringValue(hz.Id),
				Name: aws.StringValue(hz.Name),
			})
		}
		return true
	})
	if err != nil {
		return nil, wrapAWSError(err)
	}
	return zones, nil
}

// ListRecords pages through the zone's record sets. The owner name doubles as
// the record id since UPSERT addresses record sets by name and type.
func (b *route53Backend) ListRecords(ctx context.Context, z model.Zone) ([]reconcile.ProviderRecord, error) {
	var records []reconcile.ProviderRecord
	err := b.svc.ListResourceRecordSetsPagesWithContext(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId: aws.String(z.ID),
		MaxItems:     aws.String(route53MaxItems),
	}, func(page *route53.ListResourceRecordSetsOutput, lastPage bool) bool {
		for _, rrs := range page.ResourceRecordSets {
			pr := reconcile.ProviderRecord{
				ID:   aws.StringValue(rrs.Name),
				Name: aws.StringValue(rrs.Name),
				Type: model.RecordType(aws.StringValue(rrs.Type)),
			}
			if len(rrs.ResourceRecords) > 0 {
				pr.Data = aws.StringValue(rrs.ResourceRecords[0].Value)
			}
			records = append(records, pr)
		}
		return true
	})
	if err != nil {
		return nil, wrapAWSError(err)
	}
	return records, nil
}

func (b *route53Backend) CreateRecord(ctx context.Context, z model.Zone, r model.Record) error {
	return b.upsert(ctx, z, r)
}

// UpdateRecord is the same UPSERT as CreateRecord; Route53 is idempotent at this granularity.
func (b *route53Backend) UpdateRecord(ctx context.Context, z model.Zone, _ string, r model.Record) error {
	return b.upsert(ctx, z, r)
}

func (b *route53Backend) upsert(ctx context.Context, z model.Zone, r model.Record) error {
	rrsInput := &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(z.ID),
		ChangeBatch: &route53.ChangeBatch{
			Comment: aws.String(route53Comment),
			Changes: []*route53.Change{
				{
					Action: aws.String(route53.ChangeActionUpsert),
					ResourceRecordSet: &route53.ResourceRecordSet{
						Name: aws.String(b.WireName(r, z)),
						Type: aws.String(string(r.Type)),
						TTL:  aws.Int64(route53TTL),
						ResourceRecords: []*route53.ResourceRecord{
							{Value: aws.String(b.WireData(r, z))},
						},
					},
				},
			},
		},
	}

	if _, err := b.svc.ChangeResourceRecordSetsWithContext(ctx, rrsInput); err != nil {
		return fmt.Errorf("failed to upsert route53 record %v: %w", r.Name, wrapAWSError(err))
	}
	return nil
}

func (b *route53Backend) WireName(r model.Record, _ model.Zone) string {
	return strings.ReplaceAll(r.Name, "*", route53Wildcard) + "."
}

func (b *route53Backend) WireData(r model.Record, _ model.Zone) string {
	return r.Data
}

func (b *route53Backend) CanonicalName(e reconcile.ProviderRecord, _ model.Zone) string {
	return model.TrimDot(strings.ReplaceAll(e.Name, route53Wildcard, "*"))
}

func (b *route53Backend) Equal(r model.Record, _ model.Zone, e reconcile.ProviderRecord) bool {
	if r.Type == model.RecordTypeCname {
		return model.TrimDot(r.Data) == model.TrimDot(e.Data)
	}
	return r.Data == e.Data
}

func wrapAWSError(err error) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case "AccessDenied", "InvalidClientTokenId", "SignatureDoesNotMatch", "UnrecognizedClientException":
			return fmt.Errorf("%w: route53 %s: %s", model.ErrUnauthorized, aerr.Code(), aerr.Message())
		}
		return fmt.Errorf("%w: route53 %s: %s", model.ErrProviderAPI, aerr.Code(), aerr.Message())
	}
	return err
}
