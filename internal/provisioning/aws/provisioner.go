// Package aws provisions clusters on AWS.
//
// The installer creates all AWS infrastructure and DNS itself, so this
// backend only picks a region with room for another VPC.
package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/imamik/osia/internal/config"
	"github.com/imamik/osia/internal/provisioning"
)

// Name is the cloud name and template name of this backend.
const Name = config.CloudAWS

const phase = "acquire"

// EC2API is the subset of the EC2 client used for region selection.
type EC2API interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
	DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
}

// ClientFactory returns an EC2 client bound to region. An empty region
// means the default region of the environment.
type ClientFactory func(ctx context.Context, region string) (EC2API, error)

// NewEC2Client builds an EC2 client from the default credential chain.
func NewEC2Client(ctx context.Context, region string) (EC2API, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return ec2.NewFromConfig(cfg), nil
}

// Provisioner selects the cluster region.
type Provisioner struct {
	provisioning.Common

	regions   []string
	threshold int
	newClient ClientFactory
	observer  provisioning.Observer

	region string
}

// NewFactory returns the registry factory for AWS clusters.
func NewFactory(newClient ClientFactory, observer provisioning.Observer) provisioning.Factory {
	return func(cfg *config.Cloud, clusterName, dir string) (provisioning.Provisioner, error) {
		return &Provisioner{
			Common:    provisioning.NewCommon(cfg, clusterName, dir),
			regions:   append([]string(nil), cfg.ListOfRegions...),
			threshold: cfg.CapacityThreshold,
			newClient: newClient,
			observer:  observer.WithFields(map[string]string{"cloud": Name, "cluster": clusterName}),
		}, nil
	}
}

func (p *Provisioner) Name() string { return Name }

// Region returns the selected region, empty before AcquireResources.
func (p *Provisioner) Region() string { return p.region }

// AcquireResources picks the first candidate region holding fewer VPCs
// than the capacity threshold. Without configured candidates every region
// of the account is considered.
func (p *Provisioner) AcquireResources(ctx context.Context) error {
	candidates := p.regions
	if len(candidates) == 0 {
		all, err := p.allRegions(ctx)
		if err != nil {
			return err
		}
		candidates = all
	}

	region, err := provisioning.FirstBelowThreshold(ctx, candidates, p.vpcCount, p.threshold)
	if err != nil {
		return err
	}

	p.observer.Event(provisioning.Event{
		Type:     provisioning.EventResourceExists,
		Phase:    phase,
		Resource: region,
		Message:  "selected region",
	})
	p.region = region
	return nil
}

func (p *Provisioner) allRegions(ctx context.Context) ([]string, error) {
	client, err := p.newClient(ctx, "")
	if err != nil {
		return nil, err
	}
	out, err := client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to describe regions: %w", err)
	}

	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		if name := sdkaws.ToString(r.RegionName); name != "" {
			regions = append(regions, name)
		}
	}
	return regions, nil
}

func (p *Provisioner) vpcCount(ctx context.Context, region string) (int, error) {
	client, err := p.newClient(ctx, region)
	if err != nil {
		return 0, err
	}

	count := 0
	paginator := ec2.NewDescribeVpcsPaginator(client, &ec2.DescribeVpcsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to describe VPCs: %w", err)
		}
		count += len(page.Vpcs)
	}
	return count, nil
}

// PostInstallation does nothing: the installer manages AWS ingress.
func (p *Provisioner) PostInstallation(context.Context) error { return nil }

func (p *Provisioner) TemplateContext() map[string]any {
	ctx := p.CommonContext()
	ctx["cluster_region"] = p.region
	return ctx
}

func (p *Provisioner) APIAddress() string    { return "" }
func (p *Provisioner) AppsAddress() string   { return "" }
func (p *Provisioner) ImageOverride() string { return "" }
