package recommend

import "fmt"

// EmergencyMessage is the static notice substituted for the model response
// when a query is classified as an emergency.
const EmergencyMessage = `**In an emergency, call 9-1-1.**

- At home, you can dial 9-1-1 directly. At a business or other location, you may need to dial an outside line before dialing 9-1-1.
- At a pay phone, dial 9-1-1; the call is free. When using a cellular phone, be prepared to give the exact location of the emergency; the call is free.
- For TTY access (Telephone Device for the Deaf), press the space bar announcer key repeatedly until a response is received. Deaf, deafened, Hard of Hearing, or Speech Impaired persons may register for Text with 9-1-1 Service.

**If you do not speak English,** stay on the line while the call taker contacts the telephone translations service.

When you call, remain calm and speak clearly. Identify which emergency service you require (police, fire, or ambulance) and be prepared to provide the following information: a description of what is happening, the location, and your name, address, and telephone number.

Please remain on the line to provide additional information if requested by the call taker. Do not hang up until the call taker tells you to.`

// NoServicesMessage is the placeholder returned when retrieval produces no
// usable context or the model reports that nothing in the context fits.
const NoServicesMessage = "Sorry, we could not find any services matching your request. " +
	"Please try rephrasing your query or broadening your search area."

const recommendationTemplate = `You are an expert with deep knowledge of local health and community services. You will be providing a recommendation to an individual who is seeking help with the following query:

<QUERY>
%s
</QUERY>

If you determine that the individual has an emergency need, respond with exactly the text EMERGENCY and nothing else.

If the query is not a request for health or community services, do not provide a recommendation; instead respond with a brief explanation of what you can help with, and begin your response with the text "Response:".

Otherwise, using only the service context enclosed by the <CONTEXT> tag, provide a short service recommendation. The recommendation should focus on the most relevant service and should consist of two short sections: section one is an overview of the service, and section two provides the reasoning and any other helpful information. Your response should always be formatted as GitHub Markdown.

If none of the services in the context are relevant to the query, respond with exactly the text NO_SERVICES_FOUND and nothing else.

<CONTEXT>
%s
</CONTEXT>`

func recommendationPrompt(query, context string) string {
	return fmt.Sprintf(recommendationTemplate, query, context)
}
