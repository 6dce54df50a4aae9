package llm

import "google.golang.org/genai"

// ReportComponentsFunction is the tool the live model calls with detections.
const ReportComponentsFunction = "reportVisibleComponents"

func boundingBoxSchema(description string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeObject,
		Description: description,
		Properties: map[string]*genai.Schema{
			"x":      {Type: genai.TypeNumber, Description: "Top-left corner X coordinate."},
			"y":      {Type: genai.TypeNumber, Description: "Top-left corner Y coordinate."},
			"width":  {Type: genai.TypeNumber, Description: "Width of the box."},
			"height": {Type: genai.TypeNumber, Description: "Height of the box."},
		},
		Required: []string{"x", "y", "width", "height"},
	}
}

func stringList(description string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Items:       &genai.Schema{Type: genai.TypeString},
		Description: description,
	}
}

func repairGuideSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"diagnosis":        {Type: genai.TypeString, Description: "A concise diagnosis of the problem."},
			"estimatedCost":    {Type: genai.TypeString, Description: "Estimated cost including parts and labor. Provide a range if necessary."},
			"machineDowntime":  {Type: genai.TypeString, Description: "Total time the machine will be non-operational, including waiting for parts, cooling or curing (e.g. '24 hours', '2-3 days')."},
			"manualLaborTime":  {Type: genai.TypeString, Description: "Hands-on time a technician will spend on the repair (e.g. '4-5 hours')."},
			"partAvailability": {Type: genai.TypeString, Description: "Availability of required parts (e.g. 'Commonly available', 'May need to be ordered')."},
			"requiredTools":    stringList("Tools required for the repair."),
			"requiredMaterials": stringList(
				"Consumable materials or components required for the repair."),
			"safetyWarnings": stringList("Critical safety warnings and precautions."),
			"repairSteps": {
				Type:        genai.TypeArray,
				Description: "A detailed, step-by-step guide to performing the repair.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"description": {Type: genai.TypeString, Description: "A detailed description of this single repair step."},
						"boundingBox": boundingBoxSchema("Normalized bounding box of the part relevant to this step. Only include when an image was provided."),
					},
					Required: []string{"description"},
				},
			},
			"preventativeMaintenance": stringList("Preventative maintenance tips to avoid similar breakdowns."),
		},
		Required: []string{
			"diagnosis", "estimatedCost", "machineDowntime", "manualLaborTime", "partAvailability",
			"requiredTools", "requiredMaterials", "safetyWarnings", "repairSteps", "preventativeMaintenance",
		},
	}
}

func translationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"translations": stringList("Translated strings, in the same order as the input."),
		},
		Required: []string{"translations"},
	}
}

// ReportComponentsDeclaration declares the detection callback for live sessions.
func ReportComponentsDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        ReportComponentsFunction,
		Description: "Reports the machine components currently visible in the video frame with their bounding boxes.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"components": {
					Type:        genai.TypeArray,
					Description: "Every component identified in the current frame.",
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"name":        {Type: genai.TypeString, Description: "Name of the component, e.g. 'Hydraulic Cylinder'."},
							"boundingBox": boundingBoxSchema("Normalized bounding box of the component."),
						},
						Required: []string{"name", "boundingBox"},
					},
				},
			},
			Required: []string{"components"},
		},
	}
}
