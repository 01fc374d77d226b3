package railway

import (
	"context"
	"fmt"
)

const projectsQuery = `query projects {
  projects {
    edges {
      node {
        id
        name
      }
    }
  }
}`

const servicesQuery = `query project($projectId: String!) {
  project(id: $projectId) {
    services {
      edges {
        node {
          id
          name
          serviceInstances {
            edges {
              node {
                healthcheckPath
              }
            }
          }
        }
      }
    }
  }
}`

// Project is a project visible to the token.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Service is a service of a project.
type Service struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// HealthCheckURL is the health check path of the first instance that
	// has one. Nil when no instance configures a health check.
	HealthCheckURL *string `json:"healthCheckUrl"`
}

type projectsData struct {
	Projects struct {
		Edges []struct {
			Node Project `json:"node"`
		} `json:"edges"`
	} `json:"projects"`
}

type servicesData struct {
	Project struct {
		Services struct {
			Edges []struct {
				Node struct {
					ID               string `json:"id"`
					Name             string `json:"name"`
					ServiceInstances struct {
						Edges []struct {
							Node struct {
								HealthcheckPath *string `json:"healthcheckPath"`
							} `json:"node"`
						} `json:"edges"`
					} `json:"serviceInstances"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"services"`
	} `json:"project"`
}

// Projects lists the projects visible to the token.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var data projectsData

	if err := c.query(ctx, projectsQuery, nil, &data); err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}

	projects := make([]Project, 0, len(data.Projects.Edges))
	for _, edge := range data.Projects.Edges {
		projects = append(projects, edge.Node)
	}

	return projects, nil
}

// Services lists the services of a project.
func (c *Client) Services(ctx context.Context, projectID string) ([]Service, error) {
	var data servicesData

	if err := c.query(ctx, servicesQuery, map[string]any{"projectId": projectID}, &data); err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}

	services := make([]Service, 0, len(data.Project.Services.Edges))

	for _, edge := range data.Project.Services.Edges {
		service := Service{ID: edge.Node.ID, Name: edge.Node.Name}

		for _, instance := range edge.Node.ServiceInstances.Edges {
			if instance.Node.HealthcheckPath != nil {
				path := *instance.Node.HealthcheckPath
				service.HealthCheckURL = &path

				break
			}
		}

		services = append(services, service)
	}

	return services, nil
}
